package web

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/richblaalid/chuckbox/internal/dto"
	"github.com/richblaalid/chuckbox/internal/service"
)

// queryBool reads a boolean query flag, false when absent or malformed
// Lit un drapeau booléen, faux si absent ou invalide
func queryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

func (h *Handler) ListScouts(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	var patrolID *int64
	if v := r.URL.Query().Get("patrol_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			ErrorResponse(w, "invalid patrol_id", http.StatusBadRequest)
			return
		}
		patrolID = &id
	}

	scouts, err := h.container.RosterSvc.ListScouts(r.Context(), m, queryBool(r, "include_inactive"), patrolID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, map[string]any{"scouts": dto.ScoutsToDTO(scouts)})
}

func (h *Handler) CreateScout(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	var req dto.ScoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		writeError(w, r, err)
		return
	}
	scout, err := h.container.RosterSvc.CreateScout(r.Context(), m, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonStatus(w, http.StatusCreated, dto.ScoutToDTO(scout))
}

func (h *Handler) GetScout(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	scoutID, err := pathID(r, "scoutID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	scout, err := h.container.RosterSvc.GetScout(r.Context(), m, scoutID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, dto.ScoutToDTO(scout))
}

func (h *Handler) UpdateScout(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	scoutID, err := pathID(r, "scoutID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req dto.ScoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		writeError(w, r, err)
		return
	}
	scout, err := h.container.RosterSvc.UpdateScout(r.Context(), m, scoutID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, dto.ScoutToDTO(scout))
}

// DeactivateScout keeps the scout and its ledger history / Conserve le scout et son historique
func (h *Handler) DeactivateScout(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	scoutID, err := pathID(r, "scoutID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.container.RosterSvc.DeactivateScout(r.Context(), m, scoutID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListGuardians(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	scoutID, err := pathID(r, "scoutID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	guardians, err := h.container.RosterSvc.ListGuardians(r.Context(), m, scoutID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, map[string]any{"guardians": dto.GuardiansToDTO(guardians)})
}

func (h *Handler) AddGuardian(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	scoutID, err := pathID(r, "scoutID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req dto.GuardianRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	g, err := h.container.RosterSvc.AddGuardian(r.Context(), m, scoutID, req.Email, req.Relationship)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonStatus(w, http.StatusCreated, dto.GuardianResponse(*g))
}

func (h *Handler) ListPatrols(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	patrols, err := h.container.RosterSvc.ListPatrols(r.Context(), m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, map[string]any{"patrols": dto.PatrolsToDTO(patrols)})
}

func (h *Handler) CreatePatrol(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	var req dto.PatrolRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.container.RosterSvc.CreatePatrol(r.Context(), m, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonStatus(w, http.StatusCreated, dto.PatrolResponse{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt})
}

func (h *Handler) DeletePatrol(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	patrolID, err := pathID(r, "patrolID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.container.RosterSvc.DeletePatrol(r.Context(), m, patrolID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportRoster applies a CSV or JSON export, raw or as a multipart "file" field
// Applique un export CSV ou JSON, brut ou en champ multipart "file"
//
// ?dry_run=true previews the diff without writing.
func (h *Handler) ImportRoster(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	limitRequestBody(w, r, maxImportBytes)

	body, format, err := importSource(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer body.Close()

	entries, rowErrs, err := service.ParseImport(format, body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.container.RosterSvc.ImportRoster(r.Context(), m, entries, service.ImportOptions{
		DeactivateMissing: queryBool(r, "deactivate_missing"),
		DryRun:            queryBool(r, "dry_run"),
		Source:            format,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	res.RowErrors = append(res.RowErrors, rowErrs...)
	jsonResponse(w, res)
}

// importSource picks the upload body and its format / Choisit le corps et son format
func importSource(r *http.Request) (io.ReadCloser, string, error) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", fmt.Errorf("%w: file field: %w", errBadRequest, err)
		}
		if format == "" {
			format = strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
		}
		return file, format, nil
	}

	if format == "" {
		switch mediaType {
		case "text/csv":
			format = service.SourceCSV
		case "application/json":
			format = service.SourceJSON
		}
	}
	return r.Body, format, nil
}
