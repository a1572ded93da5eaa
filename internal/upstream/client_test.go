package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quizpath/session-gateway/internal/config"
	"github.com/rs/zerolog"
)

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	cfg := &config.Config{
		ContentAPIURL:   srv.URL,
		GradingAPIURL:   srv.URL,
		UpstreamTimeout: 5 * time.Second,
	}
	return NewClient(cfg, zerolog.Nop())
}

func TestFetchQuestionsStripsCorrectness(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q, want bearer forwarding", got)
		}
		if got := r.URL.Query().Get("chapterId"); got != "ch-7" {
			t.Errorf("chapterId = %q", got)
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{
				"id":             "q1",
				"question_text":  "2+2?",
				"options":        []string{"3", "4"},
				"correct_answer": "4",
				"explanation":    "arithmetic",
			},
			{
				"id":            42,
				"question_text": "capital of France?",
				"options":       []string{"Paris", "Lyon", "Nice"},
			},
		})
	}))
	defer srv.Close()

	questions, err := testClient(t, srv).FetchQuestions(context.Background(), "ch-7", "tok-1")
	if err != nil {
		t.Fatalf("FetchQuestions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(questions))
	}
	if questions[0].ID != "q1" || questions[1].ID != "42" {
		t.Errorf("IDs = %q, %q; numeric IDs must normalize to strings", questions[0].ID, questions[1].ID)
	}
	for _, q := range questions {
		if q.CorrectOption != nil || q.Explanation != nil {
			t.Errorf("question %s retained correctness fields", q.ID)
		}
	}
	if questions[1].Options[0] != "Paris" {
		t.Errorf("option order not preserved: %v", questions[1].Options)
	}
}

func TestFetchQuestionsEmptyListPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	questions, err := testClient(t, srv).FetchQuestions(context.Background(), "ch-empty", "")
	if err != nil {
		t.Fatalf("FetchQuestions: %v", err)
	}
	if len(questions) != 0 {
		t.Fatalf("got %d questions, want 0", len(questions))
	}
}

func TestFetchQuestionsRejectsMalformedQuestion(t *testing.T) {
	cases := map[string]string{
		"single option": `[{"id":"q1","question_text":"?","options":["only"]}]`,
		"missing text":  `[{"id":"q1","options":["a","b"]}]`,
		"missing id":    `[{"question_text":"?","options":["a","b"]}]`,
		"six options":   `[{"id":"q1","question_text":"?","options":["a","b","c","d","e","f"]}]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := testClient(t, srv).FetchQuestions(context.Background(), "ch", "")
			if !errors.Is(err, ErrMalformedPayload) {
				t.Fatalf("err = %v, want ErrMalformedPayload", err)
			}
		})
	}
}

func TestFetchQuestionsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(t, srv).FetchQuestions(context.Background(), "ch", "")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestFetchQuestionsBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	_, err := testClient(t, srv).FetchQuestions(context.Background(), "ch", "")
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("err = %v, want ErrMalformedPayload", err)
	}
}

func TestSubmitAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/attempts" {
			t.Errorf("%s %s, want POST /attempts", r.Method, r.URL.Path)
		}
		var req AttemptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.QuestionID != "q9" || req.SelectedOption != "B" || req.ChapterID != "ch-3" {
			t.Errorf("unexpected payload: %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"correct":        false,
			"correct_option": "C",
			"explanation":    "see chapter 3",
		})
	}))
	defer srv.Close()

	fb, err := testClient(t, srv).SubmitAttempt(context.Background(), AttemptRequest{
		QuestionID:     "q9",
		SelectedOption: "B",
		ChapterID:      "ch-3",
	}, "tok")
	if err != nil {
		t.Fatalf("SubmitAttempt: %v", err)
	}
	if fb.Correct || fb.CorrectOption != "C" || fb.Explanation != "see chapter 3" {
		t.Errorf("feedback = %+v", fb)
	}
}

func TestSubmitAttemptUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(t, srv).SubmitAttempt(context.Background(), AttemptRequest{
		QuestionID:     "q1",
		SelectedOption: "A",
		ChapterID:      "ch",
	}, "")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestListSubjectsAndChapters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/subjects":
			w.Write([]byte(`[{"id":"s1","name":"Math"}]`))
		case "/chapters":
			if got := r.URL.Query().Get("subjectId"); got != "s1" {
				t.Errorf("subjectId = %q", got)
			}
			w.Write([]byte(`[{"id":"c1","subject_id":"s1","name":"Algebra"}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := testClient(t, srv)

	subjects, err := client.ListSubjects(context.Background(), "")
	if err != nil {
		t.Fatalf("ListSubjects: %v", err)
	}
	if len(subjects) != 1 || subjects[0].Name != "Math" {
		t.Errorf("subjects = %+v", subjects)
	}

	chapters, err := client.ListChapters(context.Background(), "s1", "")
	if err != nil {
		t.Fatalf("ListChapters: %v", err)
	}
	if len(chapters) != 1 || chapters[0].Name != "Algebra" {
		t.Errorf("chapters = %+v", chapters)
	}
}
