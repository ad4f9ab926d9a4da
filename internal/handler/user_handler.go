package handler

import (
	"context"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/skillswap/internal/auth"
	"github.com/prn-tf/skillswap/internal/domain"
	"github.com/prn-tf/skillswap/internal/service"
)

// PhotoResolver turns a stored photo reference into a URL.
type PhotoResolver interface {
	URL(ctx context.Context, ref string) (string, error)
}

// UserHandler serves signup, login, profiles and the public directory.
type UserHandler struct {
	users     *service.UserService
	directory *service.DirectoryService
	tokens    *auth.TokenService
	photos    PhotoResolver
	maxMemory int64
	logger    zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(
	users *service.UserService,
	directory *service.DirectoryService,
	tokens *auth.TokenService,
	photos PhotoResolver,
	maxMemory int64,
	logger zerolog.Logger,
) *UserHandler {
	if maxMemory <= 0 {
		maxMemory = 10 << 20
	}
	return &UserHandler{
		users:     users,
		directory: directory,
		tokens:    tokens,
		photos:    photos,
		maxMemory: maxMemory,
		logger:    logger.With().Str("handler", "user").Logger(),
	}
}

// userResponse is the public projection of a user. The credential hash is
// never serialized and the photo reference is resolved to a URL.
type userResponse struct {
	*domain.User
	ProfilePhoto string `json:"profilePhoto"`
}

func (h *UserHandler) present(ctx context.Context, u *domain.User) userResponse {
	resp := userResponse{User: u}
	if u.ProfilePhotoRef == "" {
		return resp
	}
	url, err := h.photos.URL(ctx, u.ProfilePhotoRef)
	if err != nil {
		// Fall back to the raw reference.
		h.logger.Debug().Err(err).Str("ref", u.ProfilePhotoRef).Msg("photo reference not resolvable")
		url = u.ProfilePhotoRef
	}
	resp.ProfilePhoto = url
	return resp
}

func (h *UserHandler) presentAll(ctx context.Context, users []*domain.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, h.present(ctx, u))
	}
	return out
}

// =============================================================================
// Authentication
// =============================================================================

type signupRequest struct {
	Name          string    `json:"name"`
	Password      string    `json:"password"`
	Location      string    `json:"location"`
	Availability  string    `json:"availability"`
	SkillsOffered []string  `json:"skillsOffered"`
	SkillsWanted  []string  `json:"skillsWanted"`
	IsPublic      *flexBool `json:"isPublic"`
}

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Message     string       `json:"message"`
	UserID      string       `json:"userId"`
	UserProfile userResponse `json:"userProfile"`
	Token       string       `json:"token"`
	ExpiresAt   time.Time    `json:"expiresAt"`
}

func (h *UserHandler) session(ctx context.Context, msg string, user *domain.User) (*sessionResponse, error) {
	token, expiresAt, err := h.tokens.Issue(user.ID, user.Name)
	if err != nil {
		return nil, err
	}
	return &sessionResponse{
		Message:     msg,
		UserID:      user.ID,
		UserProfile: h.present(ctx, user),
		Token:       token,
		ExpiresAt:   expiresAt,
	}, nil
}

// Signup handles POST /auth/signup.
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	user, err := h.users.CreateUser(r.Context(), service.CreateUserInput{
		Name:          req.Name,
		Password:      req.Password,
		Location:      req.Location,
		Availability:  req.Availability,
		SkillsOffered: req.SkillsOffered,
		SkillsWanted:  req.SkillsWanted,
		IsPublic:      req.IsPublic.ptr(),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp, err := h.session(r.Context(), "User registered successfully", user)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Login handles POST /auth/login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Name, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp, err := h.session(r.Context(), "Login successful", user)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// Profiles
// =============================================================================

// GetProfile handles GET /profile/{id}.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(r.Context(), user))
}

// RequireOwner lets a request through only when the caller is the user named by {id}.
func (h *UserHandler) RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx, err := auth.RequireAuth(r.Context())
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		if authCtx.UserID != chi.URLParam(r, "id") {
			h.logger.Debug().Str("user_id", authCtx.UserID).Str("path", r.URL.Path).Msg("profile change by non-owner refused")
			writeError(w, h.logger, domain.ErrNotOwner)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UpdateProfile handles PUT /profile/{id} with a JSON, form or multipart body.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	patch, cleanup, err := h.decodeProfilePatch(r)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(r.Context(), user))
}

type profileJSON struct {
	Name            *string   `json:"name"`
	Location        *string   `json:"location"`
	Availability    *string   `json:"availability"`
	SkillsOffered   *[]string `json:"skillsOffered"`
	SkillsWanted    *[]string `json:"skillsWanted"`
	IsPublic        *flexBool `json:"isPublic"`
	Theme           *string   `json:"theme"`
	ProfilePhotoURL *string   `json:"profilePhotoUrl"`
}

// decodeProfilePatch decodes any supported body into one ProfilePatch.
// The returned cleanup closes an uploaded file, if any.
func (h *UserHandler) decodeProfilePatch(r *http.Request) (domain.ProfilePatch, func(), error) {
	var patch domain.ProfilePatch

	if !isMultipart(r) && !isFormEncoded(r) {
		var body profileJSON
		if err := decodeJSON(r, &body); err != nil {
			return patch, nil, domain.NewDomainError(domain.ErrValidation, "invalid request body", "")
		}
		patch = domain.ProfilePatch{
			Name:          body.Name,
			Location:      body.Location,
			Availability:  body.Availability,
			SkillsOffered: body.SkillsOffered,
			SkillsWanted:  body.SkillsWanted,
			IsPublic:      body.IsPublic.ptr(),
			Theme:         body.Theme,
			PhotoRef:      body.ProfilePhotoURL,
		}
		return patch, nil, nil
	}

	var err error
	if isMultipart(r) {
		err = r.ParseMultipartForm(h.maxMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return patch, nil, domain.NewDomainError(domain.ErrValidation, "invalid form data", "")
	}

	str := func(key string) *string {
		if vals, ok := r.Form[key]; ok && len(vals) > 0 {
			v := vals[0]
			return &v
		}
		return nil
	}
	skills := func(key string) *[]string {
		if vals, ok := r.Form[key]; ok {
			s := splitSkills(vals)
			return &s
		}
		return nil
	}

	patch.Name = str("name")
	patch.Location = str("location")
	patch.Availability = str("availability")
	patch.Theme = str("theme")
	patch.PhotoRef = str("profilePhotoUrl")
	patch.SkillsOffered = skills("skillsOffered")
	patch.SkillsWanted = skills("skillsWanted")
	if v := str("isPublic"); v != nil {
		b, err := parseFormBool(*v)
		if err != nil {
			return patch, nil, domain.NewDomainError(domain.ErrValidation, "isPublic must be a boolean", *v)
		}
		patch.IsPublic = &b
	}

	if r.MultipartForm == nil {
		return patch, nil, nil
	}

	cleanup := func() { _ = r.MultipartForm.RemoveAll() }
	file, header, err := r.FormFile("profilePhoto")
	if err != nil {
		if err == http.ErrMissingFile {
			return patch, cleanup, nil
		}
		return patch, cleanup, domain.NewDomainError(domain.ErrValidation, "invalid profile photo", "")
	}
	if header.Filename == "" {
		_ = file.Close()
		return patch, cleanup, nil
	}

	patch.Photo = &domain.PhotoUpload{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	}
	return patch, chainClose(cleanup, file), nil
}

func chainClose(cleanup func(), file multipart.File) func() {
	return func() {
		_ = file.Close()
		cleanup()
	}
}

// =============================================================================
// Directory
// =============================================================================

// ListUsers handles GET /users?searchTerm=.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.directory.ListPublic(r.Context(), r.URL.Query().Get("searchTerm"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.presentAll(r.Context(), users))
}
