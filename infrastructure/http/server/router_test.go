package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"quick-chat/auth"
	"quick-chat/domain/chat"
	apperrors "quick-chat/errors"
	"quick-chat/mocks"
	"quick-chat/observability"
	"quick-chat/repositories"
	"quick-chat/services"
)

type routerFixture struct {
	t           *testing.T
	authService *mocks.MockIAuthService
	chatService *mocks.MockIChatService
	media       *mocks.MockIStore
	app         *fiber.App
}

func (f routerFixture) do(req *http.Request) *http.Response {
	f.t.Helper()
	resp, err := f.app.Test(req, int(5*time.Second/time.Millisecond))
	require.NoError(f.t, err)
	return resp
}

func newRouterFixture(t *testing.T) routerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	log := slog.Default()
	f := routerFixture{
		t:           t,
		authService: mocks.NewMockIAuthService(ctrl),
		chatService: mocks.NewMockIChatService(ctrl),
		media:       mocks.NewMockIStore(ctrl),
	}

	router := NewRouter(
		log,
		NewAuthHandler(log, f.authService),
		NewMessageHandler(log, f.chatService, f.media, 20),
		NewWsHandler(log, mocks.NewMockIBroker(ctrl), 16),
		observability.NewMonitoringManager(log),
	)
	f.app = router.Build()
	return f
}

func bearerToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateToken(userID, time.Minute)
	require.NoError(t, err)
	return "Bearer " + token
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestRouter_Status(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)

	resp := f.do(httptest.NewRequest(http.MethodGet, "/api/status", nil))

	req.Equal(http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	req.Equal(true, body["success"])
	req.Contains(body, "stats")
}

func TestRouter_Signup(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)

	f.authService.EXPECT().
		Signup("Alice Example", "alice@example.com", "ComplexPass123!", "").
		Return(repositories.User{ID: "uuid-1", Email: "alice@example.com", FullName: "Alice Example"},
			services.Token("signed-token"), nil).
		Times(1)

	payload := `{"fullName":"Alice Example","email":"alice@example.com","password":"ComplexPass123!"}`
	httpReq := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(payload))
	httpReq.Header.Set("Content-Type", "application/json")

	resp := f.do(httpReq)

	req.Equal(http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	req.Equal("signed-token", body["token"])
	user := body["user"].(map[string]any)
	req.Equal("uuid-1", user["id"])
	// The password hash never appears in a response
	req.NotContains(user, "passwordHash")
}

func TestRouter_Signup_Conflict(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)

	f.authService.EXPECT().
		Signup(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(repositories.User{}, services.Token(""), apperrors.ErrUserAlreadyExists).
		Times(1)

	payload := `{"fullName":"Alice","email":"dup@example.com","password":"ComplexPass123!"}`
	httpReq := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(payload))
	httpReq.Header.Set("Content-Type", "application/json")

	resp := f.do(httpReq)
	req.Equal(http.StatusConflict, resp.StatusCode)
}

func TestRouter_Login_Invalid_Credentials(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)

	f.authService.EXPECT().
		Login("alice@example.com", "wrong").
		Return(repositories.User{}, services.Token(""), apperrors.ErrInvalidCredentials).
		Times(1)

	payload := `{"email":"alice@example.com","password":"wrong"}`
	httpReq := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(payload))
	httpReq.Header.Set("Content-Type", "application/json")

	resp := f.do(httpReq)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_Protected_Routes_Require_Token(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)

	for _, target := range []string{"/api/auth/check", "/api/messages/users", "/api/messages/peer-1"} {
		resp := f.do(httptest.NewRequest(http.MethodGet, target, nil))
		req.Equal(http.StatusUnauthorized, resp.StatusCode, target)
	}
}

func TestRouter_Check_Restores_Session(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)

	f.authService.EXPECT().
		CurrentUser(chat.UserID("uuid-1")).
		Return(repositories.User{ID: "uuid-1", Email: "alice@example.com"}, nil).
		Times(1)

	httpReq := httptest.NewRequest(http.MethodGet, "/api/auth/check", nil)
	httpReq.Header.Set(fiber.HeaderAuthorization, bearerToken(t, "uuid-1"))

	resp := f.do(httpReq)
	req.Equal(http.StatusOK, resp.StatusCode)
}

func TestRouter_Send_Message(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)

	f.chatService.EXPECT().
		SendMessage(gomock.Any(), chat.SendMessageCommand{
			SenderID:   "uuid-1",
			ReceiverID: "uuid-2",
			Text:       "hello",
		}).
		Return(chat.Message{SenderID: "uuid-1", ReceiverID: "uuid-2", Text: "hello"}, chat.Delivered, nil).
		Times(1)

	httpReq := httptest.NewRequest(http.MethodPost, "/api/messages/send/uuid-2",
		strings.NewReader(`{"text":"hello"}`))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(fiber.HeaderAuthorization, bearerToken(t, "uuid-1"))

	resp := f.do(httpReq)

	req.Equal(http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	req.Equal("delivered", body["outcome"])
	message := body["message"].(map[string]any)
	req.Equal("uuid-1", message["senderId"])
}

func TestRouter_Send_Empty_Message(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)

	f.chatService.EXPECT().
		SendMessage(gomock.Any(), gomock.Any()).
		Return(chat.Message{}, chat.Buffered, apperrors.ErrEmptyMessage).
		Times(1)

	httpReq := httptest.NewRequest(http.MethodPost, "/api/messages/send/uuid-2",
		strings.NewReader(`{}`))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(fiber.HeaderAuthorization, bearerToken(t, "uuid-1"))

	resp := f.do(httpReq)
	req.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_Conversation_And_Users(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)

	f.chatService.EXPECT().
		GetConversation(chat.UserID("uuid-1"), chat.UserID("uuid-2")).
		Return([]chat.Message{{Text: "hello"}}, nil).
		Times(1)
	f.chatService.EXPECT().
		SidebarUsers(chat.UserID("uuid-1")).
		Return([]services.SidebarUser{{ID: "uuid-2", Unseen: 3}}, nil).
		Times(1)

	httpReq := httptest.NewRequest(http.MethodGet, "/api/messages/uuid-2", nil)
	httpReq.Header.Set(fiber.HeaderAuthorization, bearerToken(t, "uuid-1"))
	resp := f.do(httpReq)
	req.Equal(http.StatusOK, resp.StatusCode)

	httpReq = httptest.NewRequest(http.MethodGet, "/api/messages/users", nil)
	httpReq.Header.Set(fiber.HeaderAuthorization, bearerToken(t, "uuid-1"))
	resp = f.do(httpReq)
	req.Equal(http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	users := body["users"].([]any)
	req.Len(users, 1)
	req.EqualValues(3, users[0].(map[string]any)["unseen"])
}

func TestRouter_MarkSeen_Invalid_And_Missing(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)

	// Invalid uuid never reaches the service
	httpReq := httptest.NewRequest(http.MethodPut, "/api/messages/mark/not-a-uuid", nil)
	httpReq.Header.Set(fiber.HeaderAuthorization, bearerToken(t, "uuid-1"))
	resp := f.do(httpReq)
	req.Equal(http.StatusBadRequest, resp.StatusCode)

	f.chatService.EXPECT().
		MarkMessageSeen(gomock.Any()).
		Return(apperrors.ErrMessageNotFound).
		Times(1)

	httpReq = httptest.NewRequest(http.MethodPut,
		"/api/messages/mark/7f9c24e5-2f33-4a21-b5d6-2f1a3c9a8f10", nil)
	httpReq.Header.Set(fiber.HeaderAuthorization, bearerToken(t, "uuid-1"))
	resp = f.do(httpReq)
	req.Equal(http.StatusNotFound, resp.StatusCode)
}

func TestRouter_Search_Requires_Query(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)

	httpReq := httptest.NewRequest(http.MethodGet, "/api/messages/search", nil)
	httpReq.Header.Set(fiber.HeaderAuthorization, bearerToken(t, "uuid-1"))
	resp := f.do(httpReq)
	req.Equal(http.StatusBadRequest, resp.StatusCode)
}
