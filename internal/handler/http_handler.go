// Package handler exposes the HTTP API: public content and chat endpoints
// plus the authenticated admin panel surface. Every error response has the
// shape {"error": "..."} with the status derived from the error taxonomy.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/contactdeck/be-contacts-admin/internal/apperr"
	"github.com/contactdeck/be-contacts-admin/internal/config"
	"github.com/contactdeck/be-contacts-admin/internal/repository"
	"github.com/contactdeck/be-contacts-admin/internal/service"
)

type HTTPHandler struct {
	auth    *service.AuthService
	users   *service.UserService
	content *service.ContentService
	chat    *service.ChatService
	audit   *service.AuditService
	cfg     *config.Config
	log     zerolog.Logger
}

func NewHTTPHandler(
	auth *service.AuthService,
	users *service.UserService,
	content *service.ContentService,
	chat *service.ChatService,
	audit *service.AuditService,
	cfg *config.Config,
	log zerolog.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		auth:    auth,
		users:   users,
		content: content,
		chat:    chat,
		audit:   audit,
		cfg:     cfg,
		log:     log,
	}
}

// Router builds the full route table with CORS and request logging applied
// to everything.
func (h *HTTPHandler) Router() http.Handler {
	r := mux.NewRouter()

	// Public surface.
	r.HandleFunc("/api/contacts", h.listContacts).Methods(http.MethodGet)
	r.HandleFunc("/api/settings", h.getSettings).Methods(http.MethodGet)

	// Admin auth.
	r.HandleFunc("/api/auth/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/logout", h.adminAuth(h.logout)).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/me", h.adminAuth(h.me)).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/change-password", h.adminAuth(h.changePassword)).Methods(http.MethodPost)

	// Admin content management.
	r.HandleFunc("/api/contacts", h.adminAuth(h.createContact)).Methods(http.MethodPost)
	r.HandleFunc("/api/contacts/{id:[0-9]+}", h.adminAuth(h.updateContact)).Methods(http.MethodPut)
	r.HandleFunc("/api/contacts/{id:[0-9]+}", h.adminAuth(h.deleteContact)).Methods(http.MethodDelete)
	r.HandleFunc("/api/settings", h.adminAuth(h.updateSettings)).Methods(http.MethodPut)

	// Admin account management, superadmin only.
	r.HandleFunc("/api/admin/users", h.adminAuth(h.requireSuperadmin(h.listUsers))).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/users", h.adminAuth(h.requireSuperadmin(h.createUser))).Methods(http.MethodPost)
	r.HandleFunc("/api/admin/users/{id:[0-9]+}", h.adminAuth(h.requireSuperadmin(h.deleteUser))).Methods(http.MethodDelete)
	r.HandleFunc("/api/admin/audit", h.adminAuth(h.requireSuperadmin(h.listAudit))).Methods(http.MethodGet)

	// Chat: self-service accounts and messages.
	r.HandleFunc("/api/chat/register", h.chatRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/chat/login", h.chatLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/chat/messages", h.chatAuth(h.listChatMessages)).Methods(http.MethodGet)
	r.HandleFunc("/api/chat/messages", h.chatAuth(h.postChatMessage)).Methods(http.MethodPost)

	// Chat moderation. Account-level actions are superadmin only; message
	// removal is open to any admin.
	r.HandleFunc("/api/admin/chat/users", h.adminAuth(h.requireSuperadmin(h.listChatUsers))).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/chat/users/{id:[0-9]+}/ban", h.adminAuth(h.requireSuperadmin(h.banChatUser))).Methods(http.MethodPost)
	r.HandleFunc("/api/admin/chat/users/{id:[0-9]+}/unban", h.adminAuth(h.requireSuperadmin(h.unbanChatUser))).Methods(http.MethodPost)
	r.HandleFunc("/api/admin/chat/messages/{id:[0-9]+}", h.adminAuth(h.removeChatMessage)).Methods(http.MethodDelete)

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	// The deadline budgets the storage work plus the login latency floor;
	// storage calls never outlive the request.
	deadline := h.cfg.QueryTimeout + h.cfg.LoginFloor
	chain := corsMiddleware(loggingMiddleware(h.log)(timeoutMiddleware(deadline)(r)))
	return chain
}

func (h *HTTPHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.Username == "" || body.Password == "" {
		writeError(w, apperr.Invalid("username and password are required"))
		return
	}

	resp, err := h.auth.Login(r.Context(), &service.LoginRequest{
		Username:  body.Username,
		Password:  body.Password,
		IPAddress: clientIP(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":    resp.Token,
		"username": resp.Username,
		"role":     resp.Role,
	})
}

func (h *HTTPHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), r.Header.Get(AuthTokenHeader)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *HTTPHandler) me(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":       id.UserID,
		"username": id.Username,
		"role":     id.Role,
	})
}

func (h *HTTPHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}

	var body struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	err := h.auth.ChangePassword(r.Context(), &service.ChangePasswordRequest{
		UserID:          id.UserID,
		CurrentPassword: body.CurrentPassword,
		NewPassword:     body.NewPassword,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}

type contactResponse struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	TelegramLink string `json:"telegram_link"`
	DisplayOrder int    `json:"display_order"`
}

func toContactResponse(c *repository.Contact) *contactResponse {
	return &contactResponse{
		ID:           c.ID,
		Title:        c.Title,
		Description:  c.Description,
		TelegramLink: c.TelegramLink,
		DisplayOrder: c.DisplayOrder,
	}
}

func (h *HTTPHandler) listContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.content.ListContacts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]*contactResponse, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, toContactResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) createContact(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	var body struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		TelegramLink string `json:"telegram_link"`
		DisplayOrder int    `json:"display_order"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	c, err := h.content.CreateContact(r.Context(), &service.CreateContactRequest{
		Title:         body.Title,
		Description:   body.Description,
		TelegramLink:  body.TelegramLink,
		DisplayOrder:  body.DisplayOrder,
		ActorUsername: id.Username,
		IPAddress:     clientIP(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toContactResponse(c))
}

func (h *HTTPHandler) updateContact(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	contactID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		Title        *string `json:"title"`
		Description  *string `json:"description"`
		TelegramLink *string `json:"telegram_link"`
		DisplayOrder *int    `json:"display_order"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	c, err := h.content.UpdateContact(r.Context(), &service.UpdateContactRequest{
		ContactID: contactID,
		Update: repository.ContactUpdate{
			Title:        body.Title,
			Description:  body.Description,
			TelegramLink: body.TelegramLink,
			DisplayOrder: body.DisplayOrder,
		},
		ActorUsername: id.Username,
		IPAddress:     clientIP(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContactResponse(c))
}

func (h *HTTPHandler) deleteContact(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	contactID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	err = h.content.DeleteContact(r.Context(), &service.DeleteContactRequest{
		ContactID:     contactID,
		ActorUsername: id.Username,
		IPAddress:     clientIP(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

type settingsResponse struct {
	MainTitle          string  `json:"main_title"`
	MainDescription    string  `json:"main_description"`
	BackgroundImageURL *string `json:"background_image_url"`
}

func (h *HTTPHandler) getSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.content.GetSettings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &settingsResponse{
		MainTitle:          s.MainTitle,
		MainDescription:    s.MainDescription,
		BackgroundImageURL: s.BackgroundImageURL,
	})
}

func (h *HTTPHandler) updateSettings(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	var body settingsResponse
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	s, err := h.content.UpdateSettings(r.Context(), &service.UpdateSettingsRequest{
		MainTitle:          body.MainTitle,
		MainDescription:    body.MainDescription,
		BackgroundImageURL: body.BackgroundImageURL,
		ActorUsername:      id.Username,
		IPAddress:          clientIP(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &settingsResponse{
		MainTitle:          s.MainTitle,
		MainDescription:    s.MainDescription,
		BackgroundImageURL: s.BackgroundImageURL,
	})
}

func (h *HTTPHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *HTTPHandler) createUser(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	info, err := h.users.Create(r.Context(), &service.CreateUserRequest{
		Username:      body.Username,
		Password:      body.Password,
		Role:          body.Role,
		ActorUsername: id.Username,
		IPAddress:     clientIP(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (h *HTTPHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	userID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	err = h.users.Delete(r.Context(), &service.DeleteUserRequest{
		UserID:        userID,
		ActorUsername: id.Username,
		IPAddress:     clientIP(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

type auditResponse struct {
	ID            int64  `json:"id"`
	AdminUsername string `json:"admin_username"`
	ActionType    string `json:"action_type"`
	TargetType    string `json:"target_type"`
	TargetID      string `json:"target_id"`
	Details       string `json:"details"`
	IPAddress     string `json:"ip_address"`
	CreatedAt     string `json:"created_at"`
}

func (h *HTTPHandler) listAudit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	records, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]*auditResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, &auditResponse{
			ID:            rec.ID,
			AdminUsername: rec.AdminUsername,
			ActionType:    rec.ActionType,
			TargetType:    rec.TargetType,
			TargetID:      rec.TargetID,
			Details:       rec.Details,
			IPAddress:     rec.IPAddress,
			CreatedAt:     rec.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) chatRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username         string  `json:"username"`
		Password         string  `json:"password"`
		TelegramUsername *string `json:"telegram_username"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.chat.Register(r.Context(), &service.ChatRegisterRequest{
		Username:         body.Username,
		Password:         body.Password,
		TelegramUsername: body.TelegramUsername,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token":    resp.Token,
		"username": resp.Username,
	})
}

func (h *HTTPHandler) chatLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.chat.Login(r.Context(), &service.ChatLoginRequest{
		Username: body.Username,
		Password: body.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":    resp.Token,
		"username": resp.Username,
	})
}

type chatMessageResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

func (h *HTTPHandler) listChatMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chat.ListMessages(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]*chatMessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, &chatMessageResponse{
			ID:        m.ID,
			Username:  m.Username,
			Message:   m.Message,
			CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) postChatMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := chatUserFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	m, err := h.chat.PostMessage(r.Context(), &service.PostMessageRequest{
		UserID:  user.ID,
		Message: body.Message,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &chatMessageResponse{
		ID:        m.ID,
		Username:  user.Username,
		Message:   m.Message,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
	})
}

type chatUserResponse struct {
	ID               int64   `json:"id"`
	Username         string  `json:"username"`
	TelegramUsername *string `json:"telegram_username"`
	IsBanned         bool    `json:"is_banned"`
	CreatedAt        string  `json:"created_at"`
}

func (h *HTTPHandler) listChatUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.chat.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]*chatUserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, &chatUserResponse{
			ID:               u.ID,
			Username:         u.Username,
			TelegramUsername: u.TelegramUsername,
			IsBanned:         u.IsBanned,
			CreatedAt:        u.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) banChatUser(w http.ResponseWriter, r *http.Request) {
	h.moderateChatUser(w, r, true)
}

func (h *HTTPHandler) unbanChatUser(w http.ResponseWriter, r *http.Request) {
	h.moderateChatUser(w, r, false)
}

func (h *HTTPHandler) moderateChatUser(w http.ResponseWriter, r *http.Request, banned bool) {
	id, _ := identityFrom(r.Context())
	chatUserID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	err = h.chat.SetBanned(r.Context(), &service.ModerateUserRequest{
		ChatUserID:    chatUserID,
		Banned:        banned,
		ActorUsername: id.Username,
		IPAddress:     clientIP(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_banned": banned})
}

func (h *HTTPHandler) removeChatMessage(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	messageID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	err = h.chat.RemoveMessage(r.Context(), &service.RemoveMessageRequest{
		MessageID:     messageID,
		ActorUsername: id.Username,
		IPAddress:     clientIP(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "removed"})
}

func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("invalid id")
	}
	return id, nil
}

func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Invalid("invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError renders the uniform error body. The wrapped cause never reaches
// the client.
func writeError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	writeJSON(w, apperr.HTTPStatus(code), map[string]string{"error": apperr.MessageOf(err)})
}
