package http

import (
	"net/http"

	"github.com/google/uuid"

	"medibook/backend/internal/service/accounts"
)

type registerRequest struct {
	Email      string     `json:"email"`
	Password   string     `json:"password"`
	FullName   string     `json:"full_name"`
	Mobile     string     `json:"mobile"`
	Role       string     `json:"role"`
	DivisionID *uuid.UUID `json:"division_id"`
	DistrictID *uuid.UUID `json:"district_id"`
	ThanaID    *uuid.UUID `json:"thana_id"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "malformed request body")
		return
	}

	user, err := s.deps.Accounts.Register(r.Context(), accounts.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		FullName:   req.FullName,
		Mobile:     req.Mobile,
		Role:       req.Role,
		DivisionID: req.DivisionID,
		DistrictID: req.DistrictID,
		ThanaID:    req.ThanaID,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "malformed request body")
		return
	}

	user, token, err := s.deps.Accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: toUserResponse(user)})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	user, err := s.deps.Accounts.GetUser(r.Context(), id.UserID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}
