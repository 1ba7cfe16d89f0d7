package http

import "net/http"

func (s *Server) handleListDivisions(w http.ResponseWriter, r *http.Request) {
	divisions, err := s.deps.Locations.ListDivisions(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	out := make([]divisionResponse, 0, len(divisions))
	for _, d := range divisions {
		out = append(out, divisionResponse{ID: d.ID, Name: d.Name, Code: d.Code})
	}
	writeJSON(w, http.StatusOK, map[string]any{"divisions": out})
}

func (s *Server) handleListDistricts(w http.ResponseWriter, r *http.Request) {
	divisionID, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid division id")
		return
	}
	districts, err := s.deps.Locations.ListDistricts(r.Context(), divisionID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	out := make([]districtResponse, 0, len(districts))
	for _, d := range districts {
		out = append(out, districtResponse{ID: d.ID, DivisionID: d.DivisionID, Name: d.Name, Code: d.Code})
	}
	writeJSON(w, http.StatusOK, map[string]any{"districts": out})
}

func (s *Server) handleListThanas(w http.ResponseWriter, r *http.Request) {
	districtID, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid district id")
		return
	}
	thanas, err := s.deps.Locations.ListThanas(r.Context(), districtID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	out := make([]thanaResponse, 0, len(thanas))
	for _, t := range thanas {
		out = append(out, thanaResponse{ID: t.ID, DistrictID: t.DistrictID, Name: t.Name, Code: t.Code})
	}
	writeJSON(w, http.StatusOK, map[string]any{"thanas": out})
}
