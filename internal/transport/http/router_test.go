package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"quizroom/internal/app"
	"quizroom/internal/auth"
	"quizroom/internal/domain"
	"quizroom/internal/infra/memory"
	"quizroom/internal/progression"
)

type testServer struct {
	*httptest.Server
	issuer *auth.Issuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	loader := memory.NewStaticQuizLoader(sampleQuizzes())
	profiles := memory.NewProfileStore()
	service := app.NewQuizService(
		memory.NewQuizRepository(loader, time.Minute),
		loader,
		memory.NewSubmissionStore(),
		memory.NewLiveBoard(),
		progression.NewEngine(profiles, profiles),
	)
	issuer := auth.NewIssuer("test-secret", "quizroom", time.Hour)
	srv := httptest.NewServer(NewRouter(service, issuer, nil))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, issuer: issuer}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) token(t *testing.T, uid, name string) string {
	t.Helper()
	tok, err := s.issuer.Issue(uid, name)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d", want, resp.StatusCode)
	}
}

func TestHealthzSetsRequestID(t *testing.T) {
	srv := newTestServer(t)
	resp := srv.do(t, http.MethodGet, "/healthz", "", nil)
	expectStatus(t, resp, http.StatusOK)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestGetQuizByCode(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, http.MethodGet, "/api/quizzes/code/room1", "", nil)
	expectStatus(t, resp, http.StatusOK)
	var quiz domain.Quiz
	decode(t, resp, &quiz)
	if quiz.Code != "ROOM1" || len(quiz.Questions) != 2 {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	for _, q := range quiz.Questions {
		if q.Correct != "" {
			t.Fatalf("answer key leaked for question %d", q.ID)
		}
	}

	missing := srv.do(t, http.MethodGet, "/api/quizzes/code/NOPE", "", nil)
	expectStatus(t, missing, http.StatusNotFound)
	var body map[string]string
	decode(t, missing, &body)
	if body["error"] == "" {
		t.Fatalf("expected error body")
	}
}

func TestSubmitRequiresToken(t *testing.T) {
	srv := newTestServer(t)
	body := submitRequest{QuizCode: "ROOM1", Name: "alice"}

	expectStatus(t, srv.do(t, http.MethodPost, "/api/quizzes/submit", "", body), http.StatusUnauthorized)
	expectStatus(t, srv.do(t, http.MethodPost, "/api/quizzes/submit", "garbage", body), http.StatusUnauthorized)
}

func TestSubmitAndLeaderboard(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.token(t, "u1", "alice")
	bob := srv.token(t, "u2", "bob")

	resp := srv.do(t, http.MethodPost, "/api/quizzes/submit", alice, submitRequest{
		QuizCode:        "ROOM1",
		Name:            "alice",
		DurationSeconds: 30,
		Answers:         []domain.Answer{{QuestionID: 1, Selected: "a"}, {QuestionID: 2, Selected: "C"}},
	})
	expectStatus(t, resp, http.StatusOK)
	var result domain.ScoreResult
	decode(t, resp, &result)
	if result.TotalScore != 1 || result.TotalQuestions != 2 {
		t.Fatalf("unexpected result %+v", result)
	}

	// bob leaves the name empty and is listed under the token name
	expectStatus(t, srv.do(t, http.MethodPost, "/api/quizzes/submit", bob, submitRequest{
		QuizCode:        "ROOM1",
		DurationSeconds: 20,
		Answers:         []domain.Answer{{QuestionID: 1, Selected: "A"}, {QuestionID: 2, Selected: "B"}},
	}), http.StatusOK)

	expectStatus(t, srv.do(t, http.MethodPost, "/api/quizzes/submit", bob, submitRequest{QuizCode: "NOPE"}), http.StatusNotFound)
	expectStatus(t, srv.do(t, http.MethodPost, "/api/quizzes/submit", bob, submitRequest{QuizCode: "ROOM1", DurationSeconds: -1}), http.StatusBadRequest)

	lbResp := srv.do(t, http.MethodGet, "/api/quizzes/ROOM1/leaderboard", "", nil)
	expectStatus(t, lbResp, http.StatusOK)
	var lb []domain.LeaderboardEntry
	decode(t, lbResp, &lb)
	if len(lb) != 2 || lb[0].Name != "bob" || lb[0].Rank != 1 || lb[1].Rank != 2 {
		t.Fatalf("unexpected leaderboard %+v", lb)
	}
}

func TestProfileFlow(t *testing.T) {
	srv := newTestServer(t)
	tok := srv.token(t, "u1", "alice")

	expectStatus(t, srv.do(t, http.MethodGet, "/api/me/profile", "", nil), http.StatusUnauthorized)

	expectStatus(t, srv.do(t, http.MethodPost, "/api/quizzes/submit", tok, submitRequest{
		QuizCode: "ROOM1",
		Answers:  []domain.Answer{{QuestionID: 1, Selected: "A"}, {QuestionID: 2, Selected: "B"}},
	}), http.StatusOK)

	resp := srv.do(t, http.MethodGet, "/api/me/profile", tok, nil)
	expectStatus(t, resp, http.StatusOK)
	var got profileResponse
	decode(t, resp, &got)
	if got.Profile.Name != "alice" || got.Profile.TotalXP != 110 || got.View.Level != 2 || got.View.Accuracy != 100 {
		t.Fatalf("unexpected profile %+v", got)
	}

	expectStatus(t, srv.do(t, http.MethodPut, "/api/me/profile", tok, profileUpdate{Name: "Alice", Bio: "hello"}), http.StatusNoContent)
	expectStatus(t, srv.do(t, http.MethodPut, "/api/me/profile", tok, profileUpdate{Name: " "}), http.StatusBadRequest)

	resp = srv.do(t, http.MethodGet, "/api/me/profile", tok, nil)
	decode(t, resp, &got)
	if got.Profile.Name != "Alice" || got.Profile.Bio != "hello" || got.Profile.TotalXP != 110 {
		t.Fatalf("edit changed progression: %+v", got.Profile)
	}

	awardsResp := srv.do(t, http.MethodGet, "/api/me/awards", tok, nil)
	expectStatus(t, awardsResp, http.StatusOK)
	var awards awardsResponse
	decode(t, awardsResp, &awards)
	if len(awards.Awards) != 1 || len(awards.Series) != 1 || awards.Series[0].XP != 110 {
		t.Fatalf("unexpected awards %+v", awards)
	}

	activityResp := srv.do(t, http.MethodGet, "/api/me/activity", tok, nil)
	expectStatus(t, activityResp, http.StatusOK)
	var items []domain.ActivityItem
	decode(t, activityResp, &items)
	if len(items) != 2 || items[0].Title != "Capitals" || items[0].Status != domain.SourcePlayed || items[1].Status != domain.SourceCreated {
		t.Fatalf("unexpected activity %+v", items)
	}

	expectStatus(t, srv.do(t, http.MethodPost, "/api/admin/recompute/u1", tok, nil), http.StatusNoContent)
}

func TestCreatedQuizzesAndBackfill(t *testing.T) {
	srv := newTestServer(t)
	tok := srv.token(t, "u1", "alice")

	expectStatus(t, srv.do(t, http.MethodPost, "/api/quizzes/submit", srv.token(t, "u2", "bob"), submitRequest{QuizCode: "ROOM1"}), http.StatusOK)

	resp := srv.do(t, http.MethodGet, "/api/users/u1/quizzes", "", nil)
	expectStatus(t, resp, http.StatusOK)
	var created []domain.CreatedQuiz
	decode(t, resp, &created)
	if len(created) != 1 || created[0].Code != "ROOM1" || created[0].Participants != 1 {
		t.Fatalf("unexpected created quizzes %+v", created)
	}

	backfill := srv.do(t, http.MethodPost, "/api/admin/backfill-awards", tok, backfillRequest{QuizCode: "room1"})
	expectStatus(t, backfill, http.StatusOK)
	var report app.BackfillReport
	decode(t, backfill, &report)
	// bob already holds his performance award for the room
	if report.Processed != 0 || report.Skipped != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	expectStatus(t, srv.do(t, http.MethodPost, "/api/admin/backfill-awards", tok, nil), http.StatusOK)
}

func TestLiveLeaderboardWebSocket(t *testing.T) {
	srv := newTestServer(t)

	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/leaderboard/room1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	first := readLive(t, conn)
	if first.Type != "leaderboard" || first.Code != "ROOM1" || len(first.Entries) != 0 {
		t.Fatalf("unexpected initial frame %+v", first)
	}

	expectStatus(t, srv.do(t, http.MethodPost, "/api/quizzes/submit", srv.token(t, "u1", "alice"), submitRequest{
		QuizCode:        "ROOM1",
		DurationSeconds: 9,
		Answers:         []domain.Answer{{QuestionID: 1, Selected: "A"}},
	}), http.StatusOK)

	next := readLive(t, conn)
	if len(next.Entries) != 1 || next.Entries[0].Name != "alice" || next.Entries[0].Score != 1 || next.Entries[0].DurationSeconds != 9 {
		t.Fatalf("unexpected live frame %+v", next)
	}
}

func TestLiveLeaderboardUnknownRoom(t *testing.T) {
	srv := newTestServer(t)
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/leaderboard/NOPE"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 handshake response, got %+v", resp)
	}
}

func readLive(t *testing.T, conn *websocket.Conn) LiveMessage {
	t.Helper()
	var msg LiveMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg
}

func sampleQuizzes() map[string]domain.Quiz {
	opts := map[domain.Label]string{"A": "1", "B": "2", "C": "3", "D": "4"}
	return map[string]domain.Quiz{
		"ROOM1": {
			Code:       "ROOM1",
			Title:      "Capitals",
			CreatorUID: "u1",
			CreatedAt:  time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
			Questions: []domain.Question{
				{ID: 1, Prompt: "first", Options: opts, Correct: "A", Marks: 1},
				{ID: 2, Prompt: "second", Options: opts, Correct: "B", Marks: 1},
			},
		},
	}
}

func TestCreateQuizCountsForAuthor(t *testing.T) {
	srv := newTestServer(t)
	tok := srv.token(t, "u9", "Hana")
	opts := map[domain.Label]string{"A": "red", "B": "green", "C": "blue", "D": "pink"}
	quiz := domain.Quiz{
		Code:  "colors",
		Title: "Colors",
		Questions: []domain.Question{
			{ID: 1, Prompt: "Sky?", Options: opts, Correct: "C"},
		},
	}

	expectStatus(t, srv.do(t, http.MethodPost, "/api/quizzes/create", "", quiz), http.StatusUnauthorized)

	resp := srv.do(t, http.MethodPost, "/api/quizzes/create", tok, quiz)
	expectStatus(t, resp, http.StatusCreated)
	var created domain.Quiz
	decode(t, resp, &created)
	if created.Code != "COLORS" || created.CreatorUID != "u9" || created.Questions[0].Correct != "" {
		t.Fatalf("unexpected created quiz %+v", created)
	}

	expectStatus(t, srv.do(t, http.MethodPost, "/api/quizzes/create", tok, quiz), http.StatusConflict)
	expectStatus(t, srv.do(t, http.MethodPost, "/api/quizzes/create", tok, domain.Quiz{Code: "EMPTY", Title: "Empty"}), http.StatusBadRequest)
	expectStatus(t, srv.do(t, http.MethodGet, "/api/quizzes/code/colors", "", nil), http.StatusOK)

	profile := srv.do(t, http.MethodGet, "/api/me/profile", tok, nil)
	expectStatus(t, profile, http.StatusOK)
	var body profileResponse
	decode(t, profile, &body)
	if body.Profile.QuizzesCreated != 1 {
		t.Fatalf("expected one created quiz on profile, got %+v", body.Profile.Counters)
	}

	list := srv.do(t, http.MethodGet, "/api/users/u9/quizzes", "", nil)
	expectStatus(t, list, http.StatusOK)
	var rooms []domain.CreatedQuiz
	decode(t, list, &rooms)
	if len(rooms) != 1 || rooms[0].Code != "COLORS" {
		t.Fatalf("unexpected created list %+v", rooms)
	}
}

func TestExpiredTokenIsRejectedWithReason(t *testing.T) {
	srv := newTestServer(t)
	past := auth.NewIssuerWithClock("test-secret", "quizroom", time.Minute, func() time.Time {
		return time.Now().Add(-time.Hour)
	})
	tok, err := past.Issue("u1", "ann")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	resp := srv.do(t, http.MethodGet, "/api/me/profile", tok, nil)
	expectStatus(t, resp, http.StatusUnauthorized)
	var body struct {
		Error string `json:"error"`
	}
	decode(t, resp, &body)
	if !strings.Contains(body.Error, "token expired") {
		t.Fatalf("expected expiry reason, got %q", body.Error)
	}
}
