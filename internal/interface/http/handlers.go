package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/petgalaxy/classroom-pets/internal/application/classroom"
	"github.com/petgalaxy/classroom-pets/internal/domain/leaderboard"
	"github.com/petgalaxy/classroom-pets/internal/domain/preset"
	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
	"github.com/petgalaxy/classroom-pets/internal/domain/student"
	"github.com/petgalaxy/classroom-pets/pkg/logger"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
	cacheReadTimeout     = 500 * time.Millisecond
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"name":    "Pet Galaxy Classroom API",
		"version": s.config.Version,
		"endpoints": map[string]string{
			"health":      "/health",
			"classroom":   "/api/v1/classroom",
			"leaderboard": "/api/v1/leaderboard",
			"activity":    "/api/v1/activity",
		},
	})
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Healthy {
		writeJSON(w, r, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// handleReady handles the readiness probe endpoint.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Healthy {
		writeJSONErrorWithDetails(w, r, http.StatusServiceUnavailable, "not_ready", "Service is not ready", status.Message)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// CLASSROOM HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetClassroom handles GET /api/v1/classroom
func (s *Server) handleGetClassroom(w http.ResponseWriter, r *http.Request) {
	state := s.deps.Classroom.Snapshot()
	writeJSONWithMeta(w, r, http.StatusOK, toClassroomDTO(state), &ResponseMeta{TotalCount: len(state.Students)})
}

// handleRenameClass handles PUT /api/v1/classroom/name
func (s *Server) handleRenameClass(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, ok := s.dispatch(w, r, classroom.RenameClass{Name: req.Name})
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"className": res.State.ClassName})
}

// handleClearAll handles DELETE /api/v1/data
func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	res, ok := s.dispatch(w, r, classroom.ClearAll{})
	if !ok {
		return
	}
	logger.FromContext(r.Context()).Warn("classroom data cleared")
	writeJSON(w, r, http.StatusOK, toClassroomDTO(res.State))
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD & ACTIVITY HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetLeaderboard handles GET /api/v1/leaderboard. The cached snapshot
// is served when it is as new as the live state; otherwise the live state
// is ranked.
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := getQueryParamInt(r, "limit", 0)

	resp := leaderboardDTO{Source: "live"}
	if snap := s.cachedLeaderboard(r.Context()); snap != nil {
		resp.Entries = snap.Entries
		resp.GeneratedAt = snap.GeneratedAt
		resp.Source = "cache"
	} else {
		snap := leaderboard.Flatten(s.deps.Classroom.Leaderboard(), time.Now().UTC())
		resp.Entries = snap.Entries
		resp.GeneratedAt = snap.GeneratedAt
	}

	total := len(resp.Entries)
	if limit > 0 && limit < total {
		resp.Entries = resp.Entries[:limit]
	}
	writeJSONWithMeta(w, r, http.StatusOK, resp, &ResponseMeta{TotalCount: total})
}

func (s *Server) cachedLeaderboard(ctx context.Context) *leaderboard.Snapshot {
	if s.deps.LeaderboardCache == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, cacheReadTimeout)
	defer cancel()

	snap, err := s.deps.LeaderboardCache.LoadSnapshot(ctx)
	switch {
	case err == nil:
		if live := s.deps.Classroom.LeaderboardVersion(); snap.StaleAt(live) {
			logger.FromContext(ctx).Debug("cached leaderboard is stale",
				logger.Int64("cached_version", int64(snap.Version)),
				logger.Int64("live_version", int64(live)),
			)
			return nil
		}
		return snap
	case shared.IsNotFound(err):
	case errors.Is(err, shared.ErrServiceUnavailable):
		logger.FromContext(ctx).Debug("leaderboard cache circuit open")
	default:
		logger.FromContext(ctx).Warn("leaderboard cache unavailable", logger.Err(err))
	}
	return nil
}

// handleActivity handles GET /api/v1/activity?q=&limit=
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := getQueryParamInt(r, "limit", defaultActivityLimit)
	if limit <= 0 || limit > maxActivityLimit {
		limit = defaultActivityLimit
	}
	items := s.deps.Classroom.ActivityFeed(r.URL.Query().Get("q"), limit)
	writeJSONWithMeta(w, r, http.StatusOK, toActivityDTOs(items), &ResponseMeta{TotalCount: len(items)})
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleAddStudent handles POST /api/v1/students
func (s *Server) handleAddStudent(w http.ResponseWriter, r *http.Request) {
	var req studentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, ok := s.dispatch(w, r, classroom.AddStudent{
		ID:     req.ID,
		Name:   req.Name,
		Avatar: req.Avatar,
		Gender: student.Gender(req.Gender),
	})
	if !ok {
		return
	}
	writeStudent(w, r, http.StatusCreated, res.State, res.SubjectID)
}

// handleUpdateStudent handles PUT /api/v1/students/{id}
func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	var req studentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, ok := s.dispatch(w, r, classroom.UpdateStudent{
		ID:     r.PathValue("id"),
		Name:   req.Name,
		Avatar: req.Avatar,
		Gender: student.Gender(req.Gender),
	})
	if !ok {
		return
	}
	writeStudent(w, r, http.StatusOK, res.State, res.SubjectID)
}

// handleDeleteStudent handles DELETE /api/v1/students/{id}
func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.dispatch(w, r, classroom.DeleteStudent{ID: id}); !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"id": id})
}

// handleAdoptPet handles POST /api/v1/students/{id}/adopt
func (s *Server) handleAdoptPet(w http.ResponseWriter, r *http.Request) {
	var req adoptRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, ok := s.dispatch(w, r, classroom.AdoptPet{
		StudentID: r.PathValue("id"),
		PetName:   req.PetName,
		Images:    req.Images,
		PackID:    req.PackID,
	})
	if !ok {
		return
	}
	writeStudent(w, r, http.StatusCreated, res.State, res.SubjectID)
}

// handleGivePoints handles POST /api/v1/students/{id}/points
func (s *Server) handleGivePoints(w http.ResponseWriter, r *http.Request) {
	var req pointsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.petAction(w, r, classroom.GivePoints{
		StudentID: r.PathValue("id"),
		Amount:    req.Amount,
		Reason:    req.Reason,
		PresetID:  req.PresetID,
	})
}

// handleBuyFood handles POST /api/v1/students/{id}/buy-food
func (s *Server) handleBuyFood(w http.ResponseWriter, r *http.Request) {
	s.petAction(w, r, classroom.BuyFood{StudentID: r.PathValue("id")})
}

// handleFeedPet handles POST /api/v1/students/{id}/feed
func (s *Server) handleFeedPet(w http.ResponseWriter, r *http.Request) {
	s.petAction(w, r, classroom.FeedPet{StudentID: r.PathValue("id")})
}

// petAction dispatches a pet message. Refused actions such as buying food
// without points are not errors: they answer 200 with the outcome and the
// unchanged pet.
func (s *Server) petAction(w http.ResponseWriter, r *http.Request, msg classroom.Msg) {
	res, ok := s.dispatch(w, r, msg)
	if !ok {
		return
	}
	resp := actionDTO{Outcome: string(res.Outcome)}
	id := res.SubjectID
	if id == "" {
		id = r.PathValue("id")
	}
	if st, _ := res.State.Student(id); st != nil {
		dto := toStudentDTO(st, res.State.Pet(id))
		resp.Student = &dto
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// handleGetCertificate handles GET /api/v1/students/{id}/certificate
func (s *Server) handleGetCertificate(w http.ResponseWriter, r *http.Request) {
	cert, err := s.deps.Classroom.Certificate(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toCertificateDTO(cert))
}

// ══════════════════════════════════════════════════════════════════════════════
// PRESET & RESOURCE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListPresets handles GET /api/v1/presets
func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets := s.deps.Classroom.Snapshot().PointPresets
	if presets == nil {
		presets = []preset.PointPreset{}
	}
	writeJSONWithMeta(w, r, http.StatusOK, presets, &ResponseMeta{TotalCount: len(presets)})
}

// handleAddPreset handles POST /api/v1/presets
func (s *Server) handleAddPreset(w http.ResponseWriter, r *http.Request) {
	var req presetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, ok := s.dispatch(w, r, classroom.AddPointPreset{Label: req.Label, Amount: req.Amount})
	if !ok {
		return
	}
	p, _ := res.State.PointPreset(res.SubjectID)
	writeJSON(w, r, http.StatusCreated, p)
}

// handleDeletePreset handles DELETE /api/v1/presets/{id}
func (s *Server) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	s.deleteResource(w, r, classroom.DeletePointPreset{ID: r.PathValue("id")})
}

// handleListPetPacks handles GET /api/v1/pet-packs
func (s *Server) handleListPetPacks(w http.ResponseWriter, r *http.Request) {
	packs := s.deps.Classroom.Snapshot().PetImagePacks
	writeJSONWithMeta(w, r, http.StatusOK, toPackDTOs(packs), &ResponseMeta{TotalCount: len(packs)})
}

// handleAddPetPack handles POST /api/v1/pet-packs
func (s *Server) handleAddPetPack(w http.ResponseWriter, r *http.Request) {
	var req packRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, ok := s.dispatch(w, r, classroom.AddPetImagePack{Name: req.Name, Images: req.Images})
	if !ok {
		return
	}
	pack, _ := res.State.PetImagePack(res.SubjectID)
	writeJSON(w, r, http.StatusCreated, toPackDTOs([]preset.PetImagePack{pack})[0])
}

// handleDeletePetPack handles DELETE /api/v1/pet-packs/{id}
func (s *Server) handleDeletePetPack(w http.ResponseWriter, r *http.Request) {
	s.deleteResource(w, r, classroom.DeletePetImagePack{ID: r.PathValue("id")})
}

// handleListAvatars handles GET /api/v1/avatars
func (s *Server) handleListAvatars(w http.ResponseWriter, r *http.Request) {
	avatars := s.deps.Classroom.Snapshot().AvatarPresets
	writeJSONWithMeta(w, r, http.StatusOK, toAvatarDTOs(avatars), &ResponseMeta{TotalCount: len(avatars)})
}

// handleAddAvatar handles POST /api/v1/avatars
func (s *Server) handleAddAvatar(w http.ResponseWriter, r *http.Request) {
	var req avatarRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, ok := s.dispatch(w, r, classroom.AddAvatarPreset{Name: req.Name, Image: req.Image})
	if !ok {
		return
	}
	i := slices.IndexFunc(res.State.AvatarPresets, func(a preset.AvatarPreset) bool { return a.ID == res.SubjectID })
	if i < 0 {
		writeJSON(w, r, http.StatusCreated, map[string]string{"id": res.SubjectID})
		return
	}
	writeJSON(w, r, http.StatusCreated, toAvatarDTOs(res.State.AvatarPresets[i : i+1])[0])
}

// handleDeleteAvatar handles DELETE /api/v1/avatars/{id}
func (s *Server) handleDeleteAvatar(w http.ResponseWriter, r *http.Request) {
	s.deleteResource(w, r, classroom.DeleteAvatarPreset{ID: r.PathValue("id")})
}

// handleListPool handles GET /api/v1/avatar-pool
func (s *Server) handleListPool(w http.ResponseWriter, r *http.Request) {
	pool := s.deps.Classroom.Snapshot().PoolAssets
	writeJSONWithMeta(w, r, http.StatusOK, toAssetDTOs(pool), &ResponseMeta{TotalCount: len(pool)})
}

// handleAddPoolAvatars handles POST /api/v1/avatar-pool
func (s *Server) handleAddPoolAvatars(w http.ResponseWriter, r *http.Request) {
	var req poolRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, ok := s.dispatch(w, r, classroom.AddPoolAvatars{Images: req.Images})
	if !ok {
		return
	}
	pool := res.State.PoolAssets
	writeJSONWithMeta(w, r, http.StatusCreated, toAssetDTOs(pool), &ResponseMeta{TotalCount: len(pool)})
}

func (s *Server) deleteResource(w http.ResponseWriter, r *http.Request, msg classroom.Msg) {
	if _, ok := s.dispatch(w, r, msg); !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"id": r.PathValue("id")})
}

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCH & ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// dispatch sends msg to the classroom and writes the error response when it
// fails. ok reports whether the caller should write a success response.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, msg classroom.Msg) (classroom.Result, bool) {
	res, err := s.deps.Classroom.Dispatch(r.Context(), msg)
	if err != nil {
		writeDomainError(w, r, err)
		return res, false
	}
	return res, true
}

func writeStudent(w http.ResponseWriter, r *http.Request, status int, state classroom.State, id string) {
	st, _ := state.Student(id)
	if st == nil {
		writeJSONError(w, r, http.StatusNotFound, "not_found", "student not found")
		return
	}
	writeJSON(w, r, status, toStudentDTO(st, state.Pet(id)))
}

// decodeBody reads a JSON request body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeJSONError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large")
	case errors.Is(err, io.EOF):
		writeJSONError(w, r, http.StatusBadRequest, "invalid_request", "Request body is required")
	default:
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
	}
	return false
}

// statusForError maps a domain error kind to an HTTP status and code.
func statusForError(err error) (int, string) {
	switch {
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case shared.IsAlreadyExists(err):
		return http.StatusConflict, "already_exists"
	case shared.IsValidation(err):
		return http.StatusBadRequest, "validation_error"
	case shared.IsInvalidState(err):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, shared.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "service_unavailable"
	case shared.IsStorage(err):
		return http.StatusInternalServerError, "storage_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusForError(err)

	message := "An unexpected error occurred"
	var de *shared.DomainError
	if errors.As(err, &de) {
		message = de.Message
	}

	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed", logger.Err(err))
	}
	writeJSONError(w, r, status, code, message)
}
