package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"sitewatch/internal/catalog"
	"sitewatch/internal/domain"
	"sitewatch/internal/store"
)

// API serves alert queries, lifecycle transitions, and zone management.
// Params: manager pipeline handle and zone catalog.
// Returns: HTTP handler set registered by the service mux.
type API struct {
	manager *Manager
	catalog *catalog.Catalog
}

// NewAPI creates the management API handler set.
// Params: manager and catalog.
// Returns: initialized API.
func NewAPI(manager *Manager, cat *catalog.Catalog) *API {
	return &API{manager: manager, catalog: cat}
}

// actorRequest carries the acting operator for lifecycle transitions.
type actorRequest struct {
	Actor string `json:"actor"`
}

// HandleListAlerts returns alerts matching query selectors.
// Params: optional type/severity/status/zone_id/source_id/from/to query params;
// from and to accept RFC 3339 timestamps.
// Returns: 200 with alert list or 400 for malformed selectors.
func (a *API) HandleListAlerts(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	filter := store.Filter{
		Type:     query.Get("type"),
		ZoneID:   query.Get("zone_id"),
		SourceID: query.Get("source_id"),
	}
	if raw := query.Get("severity"); raw != "" {
		severity, err := domain.ParseSeverity(raw)
		if err != nil {
			writeError(writer, http.StatusBadRequest, err.Error())
			return
		}
		filter.Severity = severity
	}
	if raw := query.Get("status"); raw != "" {
		status := domain.ParseStatus(raw)
		if status == "" {
			writeError(writer, http.StatusBadRequest, "unknown status "+raw)
			return
		}
		filter.Status = status
	}
	var err error
	if filter.From, err = parseTimeParam(query.Get("from")); err != nil {
		writeError(writer, http.StatusBadRequest, err.Error())
		return
	}
	if filter.To, err = parseTimeParam(query.Get("to")); err != nil {
		writeError(writer, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(writer, http.StatusOK, map[string]any{"alerts": a.manager.Alerts(filter)})
}

// HandleGetAlert returns one alert by path id.
// Params: {id} path value.
// Returns: 200 with alert or 404.
func (a *API) HandleGetAlert(writer http.ResponseWriter, request *http.Request) {
	alert, err := a.manager.Alert(request.PathValue("id"))
	if err != nil {
		writeCatalogError(writer, err)
		return
	}
	writeJSON(writer, http.StatusOK, alert)
}

// HandleAcknowledge applies the acknowledge transition.
// Params: {id} path value and JSON body with acting operator.
// Returns: 200 with resulting alert, 400 for missing actor, or 404.
func (a *API) HandleAcknowledge(writer http.ResponseWriter, request *http.Request) {
	a.handleTransition(writer, request, a.manager.Acknowledge)
}

// HandleResolve applies the resolve transition.
// Params: {id} path value and JSON body with acting operator.
// Returns: 200 with resulting alert, 400 for missing actor, or 404.
func (a *API) HandleResolve(writer http.ResponseWriter, request *http.Request) {
	a.handleTransition(writer, request, a.manager.Resolve)
}

// handleTransition decodes the actor and applies one lifecycle transition.
// Params: request pair and transition callback.
// Returns: none.
func (a *API) handleTransition(writer http.ResponseWriter, request *http.Request, apply func(id, actor string) (domain.Alert, error)) {
	var body actorRequest
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		writeError(writer, http.StatusBadRequest, "decode body: "+err.Error())
		return
	}
	if strings.TrimSpace(body.Actor) == "" {
		writeError(writer, http.StatusBadRequest, "actor is required")
		return
	}
	alert, err := apply(request.PathValue("id"), body.Actor)
	if err != nil {
		writeCatalogError(writer, err)
		return
	}
	writeJSON(writer, http.StatusOK, alert)
}

// HandleSummary returns the cached metrics snapshot.
// Params: none.
// Returns: 200 with snapshot.
func (a *API) HandleSummary(writer http.ResponseWriter, request *http.Request) {
	writeJSON(writer, http.StatusOK, a.manager.Summary())
}

// HandleListZones returns all catalog zones.
// Params: none.
// Returns: 200 with zone list.
func (a *API) HandleListZones(writer http.ResponseWriter, request *http.Request) {
	writeJSON(writer, http.StatusOK, map[string]any{"zones": a.catalog.ListZones()})
}

// HandleCreateZone adds one zone from request body.
// Params: JSON zone body with optional rules.
// Returns: 201 with stored zone, 400 for invalid body, or 409 for duplicate id.
func (a *API) HandleCreateZone(writer http.ResponseWriter, request *http.Request) {
	var zone catalog.Zone
	if err := json.NewDecoder(request.Body).Decode(&zone); err != nil {
		writeError(writer, http.StatusBadRequest, "decode body: "+err.Error())
		return
	}
	created, err := a.catalog.CreateZone(zone)
	if err != nil {
		writeCatalogError(writer, err)
		return
	}
	writeJSON(writer, http.StatusCreated, created)
}

// HandleGetZone returns one zone by path id.
// Params: {id} path value.
// Returns: 200 with zone or 404.
func (a *API) HandleGetZone(writer http.ResponseWriter, request *http.Request) {
	zone, err := a.catalog.GetZone(request.PathValue("id"))
	if err != nil {
		writeCatalogError(writer, err)
		return
	}
	writeJSON(writer, http.StatusOK, zone)
}

// HandleUpdateZone applies a sparse patch to one zone.
// Params: {id} path value and JSON patch body.
// Returns: 200 with updated zone, 400 for invalid body, or 404.
func (a *API) HandleUpdateZone(writer http.ResponseWriter, request *http.Request) {
	var patch catalog.ZonePatch
	if err := json.NewDecoder(request.Body).Decode(&patch); err != nil {
		writeError(writer, http.StatusBadRequest, "decode body: "+err.Error())
		return
	}
	zone, err := a.catalog.UpdateZone(request.PathValue("id"), patch)
	if err != nil {
		writeCatalogError(writer, err)
		return
	}
	writeJSON(writer, http.StatusOK, zone)
}

// HandleAddRule appends one rule to a zone.
// Params: {id} path value and JSON rule body.
// Returns: 201 with stored rule, 400 for invalid thresholds, 404, or 409.
func (a *API) HandleAddRule(writer http.ResponseWriter, request *http.Request) {
	var rule catalog.Rule
	if err := json.NewDecoder(request.Body).Decode(&rule); err != nil {
		writeError(writer, http.StatusBadRequest, "decode body: "+err.Error())
		return
	}
	created, err := a.catalog.AddRule(request.PathValue("id"), rule)
	if err != nil {
		writeCatalogError(writer, err)
		return
	}
	writeJSON(writer, http.StatusCreated, created)
}

// HandleUpdateRule applies a sparse patch to one rule.
// Params: {id} and {rid} path values and JSON patch body.
// Returns: 200 with updated rule, 400 for invalid thresholds, or 404.
func (a *API) HandleUpdateRule(writer http.ResponseWriter, request *http.Request) {
	var patch catalog.RulePatch
	if err := json.NewDecoder(request.Body).Decode(&patch); err != nil {
		writeError(writer, http.StatusBadRequest, "decode body: "+err.Error())
		return
	}
	rule, err := a.catalog.UpdateRule(request.PathValue("id"), request.PathValue("rid"), patch)
	if err != nil {
		writeCatalogError(writer, err)
		return
	}
	writeJSON(writer, http.StatusOK, rule)
}

// HandleDeleteRule removes one rule from a zone.
// Params: {id} and {rid} path values.
// Returns: 204 or 404.
func (a *API) HandleDeleteRule(writer http.ResponseWriter, request *http.Request) {
	if err := a.catalog.DeleteRule(request.PathValue("id"), request.PathValue("rid")); err != nil {
		writeCatalogError(writer, err)
		return
	}
	writer.WriteHeader(http.StatusNoContent)
}

// parseTimeParam parses one optional RFC 3339 query parameter.
// Params: raw query value.
// Returns: parsed time, zero value for empty input, or parse error.
func parseTimeParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New("time selector must be RFC 3339")
	}
	return parsed, nil
}

// writeCatalogError maps domain errors to HTTP status codes.
// Params: writer and failure from catalog/store/lifecycle operations.
// Returns: none. Not-found maps to 404, duplicates to 409, everything else
// is treated as a client-side validation failure.
func writeCatalogError(writer http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound) || errors.Is(err, store.ErrNotFound):
		writeError(writer, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrExists):
		writeError(writer, http.StatusConflict, err.Error())
	default:
		writeError(writer, http.StatusBadRequest, err.Error())
	}
}

// writeJSON encodes one response payload with status code.
// Params: writer, status code, and payload.
// Returns: none.
func writeJSON(writer http.ResponseWriter, status int, payload any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(payload)
}

// writeError encodes one error payload with status code.
// Params: writer, status code, and error message.
// Returns: none.
func writeError(writer http.ResponseWriter, status int, message string) {
	writeJSON(writer, status, map[string]string{"error": message})
}
