package scoringclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellcheck/wellcheck/internal/domain/catalog"
	"github.com/wellcheck/wellcheck/pkg/scoring"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func localEngine(t *testing.T) *scoring.Engine {
	t.Helper()
	static, err := catalog.NewStatic()
	require.NoError(t, err)
	e := scoring.NewEngine(static)
	e.SetClock(func() time.Time { return fixedNow })
	return e
}

func phq9Answers(v int) scoring.ResponseSet {
	var rs scoring.ResponseSet
	for q := 101; q <= 109; q++ {
		rs = append(rs, scoring.OptionAnswer(q, q*10+v))
	}
	return rs
}

func newClient(t *testing.T, h http.HandlerFunc, opts ...Option) (*Client, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	var logs bytes.Buffer
	opts = append([]Option{WithLogger(zerolog.New(&logs)), WithLocal(localEngine(t))}, opts...)
	c, err := New(srv.URL+"/", opts...)
	require.NoError(t, err)
	return c, &logs
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestNew_TimeoutDoesNotDependOnOptionOrder(t *testing.T) {
	for _, name := range []string{"timeout first", "timeout last"} {
		t.Run(name, func(t *testing.T) {
			shared := &http.Client{}
			opts := []Option{WithTimeout(3 * time.Second), WithHTTPClient(shared)}
			if name == "timeout last" {
				opts[0], opts[1] = opts[1], opts[0]
			}
			c, err := New("http://scoring.example", opts...)
			require.NoError(t, err)
			assert.Equal(t, 3*time.Second, c.httpClient.Timeout)
			assert.Zero(t, shared.Timeout, "caller's client must not be modified")
		})
	}
}

func TestAssess_Remote(t *testing.T) {
	c, logs := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tests/phq9/assess", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var req assessRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Responses, 9)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"abc","test_code":"phq9","calculated_score":9,"max_score":27,"severity_level":"mild"}`))
	}, WithToken("tok"))

	got, err := c.Assess(context.Background(), "phq9", phq9Answers(1))
	require.NoError(t, err)
	assert.Equal(t, "abc", got.ID)
	assert.False(t, got.Local)
	assert.Equal(t, 9.0, got.Result.RawScore)
	assert.Equal(t, scoring.SeverityMild, got.Result.SeverityLevel)
	assert.NotContains(t, logs.String(), "scoring locally")
}

func TestAssess_ServerErrorFallsBack(t *testing.T) {
	c, logs := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	got, err := c.Assess(context.Background(), "phq9", phq9Answers(1))
	require.NoError(t, err)
	assert.True(t, got.Local)
	assert.Empty(t, got.ID)
	assert.Equal(t, 9.0, got.Result.RawScore)
	assert.Contains(t, logs.String(), "scoring locally")
}

func TestAssess_TransportErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, WithLocal(localEngine(t)), WithTimeout(time.Second))
	require.NoError(t, err)
	got, err := c.Assess(context.Background(), "phq9", phq9Answers(0))
	require.NoError(t, err)
	assert.True(t, got.Local)
	assert.Equal(t, scoring.SeverityMinimal, got.Result.SeverityLevel)
}

func TestAssess_NoLocalEngine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	_, err = c.Assess(context.Background(), "phq9", phq9Answers(0))
	assert.True(t, IsUnavailable(err))
}

func TestAssess_ValidationIsNotRetriedLocally(t *testing.T) {
	c, logs := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"phq9: unanswered question(s) 109","kind":"incomplete_response","missing_question_ids":[109]}`))
	})

	_, err := c.Assess(context.Background(), "phq9", phq9Answers(1)[:8])
	var incomplete *scoring.IncompleteResponseError
	require.True(t, errors.As(err, &incomplete), "got %v", err)
	assert.Equal(t, []int{109}, incomplete.Missing)
	assert.True(t, scoring.IsValidation(err))
	assert.NotContains(t, logs.String(), "scoring locally")
}

func TestAssess_OtherClientErrors(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"comprehensive: definition is a composite battery","kind":"wrong_test_kind","missing_question_ids":[]}`))
	})

	_, err := c.Assess(context.Background(), "comprehensive", phq9Answers(1))
	var api *APIError
	require.True(t, errors.As(err, &api))
	assert.Equal(t, "wrong_test_kind", api.Kind)
	assert.False(t, IsUnavailable(err))
}

func TestAssess_CatalogDefectIsNotRetriedLocally(t *testing.T) {
	c, logs := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"test definition is misconfigured","kind":"catalog_defect"}`))
	})

	_, err := c.Assess(context.Background(), "phq9", phq9Answers(1))
	assert.True(t, scoring.IsCatalogDefect(err), "got %v", err)
	assert.False(t, IsUnavailable(err))
	assert.NotContains(t, logs.String(), "scoring locally")
}

func TestDecodeError_Kinds(t *testing.T) {
	tests := []struct {
		kind   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"incomplete_response", 422, `{"kind":"incomplete_response","missing_question_ids":[108,109]}`, func(t *testing.T, err error) {
			var e *scoring.IncompleteResponseError
			require.True(t, errors.As(err, &e))
			assert.Equal(t, []int{108, 109}, e.Missing)
		}},
		{"duplicate_response", 422, `{"kind":"duplicate_response","question_id":103}`, func(t *testing.T, err error) {
			var e *scoring.DuplicateResponseError
			require.True(t, errors.As(err, &e))
			assert.Equal(t, 103, e.QuestionID)
		}},
		{"unknown_question", 422, `{"kind":"unknown_question","question_id":0,"question_number":12}`, func(t *testing.T, err error) {
			var e *scoring.UnknownQuestionError
			require.True(t, errors.As(err, &e))
			assert.Equal(t, 12, e.QuestionNumber)
		}},
		{"invalid_option", 422, `{"kind":"invalid_option","question_id":101,"option_id":9999}`, func(t *testing.T, err error) {
			var e *scoring.InvalidOptionError
			require.True(t, errors.As(err, &e))
			assert.Equal(t, 101, e.QuestionID)
			require.NotNil(t, e.OptionID)
			assert.Equal(t, 9999, *e.OptionID)
		}},
		{"aggregation", 422, `{"kind":"aggregation","missing_categories":["stress"]}`, func(t *testing.T, err error) {
			var e *scoring.AggregationError
			require.True(t, errors.As(err, &e))
			assert.Equal(t, []scoring.Category{scoring.CategoryStress}, e.Missing)
		}},
		{"catalog_defect", 500, `{"kind":"catalog_defect","error":"test definition is misconfigured"}`, func(t *testing.T, err error) {
			assert.True(t, scoring.IsCatalogDefect(err))
		}},
		{"not_found", 404, `{"message":"Not Found"}`, func(t *testing.T, err error) {
			assert.True(t, scoring.IsNotFound(err))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			err := decodeError(tt.status, "phq9", []byte(tt.body))
			tt.check(t, err)
			if tt.status == 422 {
				assert.True(t, scoring.IsValidation(err))
				assert.Equal(t, tt.kind, scoring.Kind(err))
			}
			assert.False(t, IsUnavailable(err))
		})
	}
}

func TestAssess_NotFound(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"test definition \"bdi2\" not found"}`))
	})

	_, err := c.Assess(context.Background(), "bdi2", nil)
	assert.True(t, scoring.IsNotFound(err))
}

func TestAssessComprehensive_Remote(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/assessments/comprehensive", r.URL.Path)
		var req assessRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "comprehensive", req.TestCode)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"xyz","depression":{"test_code":"phq9","calculated_score":9},
			"overall_score":12,"overall_risk_level":"medium","recommendations":["a"]}`))
	})

	got, err := c.AssessComprehensive(context.Background(), "comprehensive", nil)
	require.NoError(t, err)
	assert.Equal(t, "xyz", got.ID)
	assert.Equal(t, scoring.RiskMedium, got.Result.OverallRiskLevel)
	require.Contains(t, got.Result.SubResults, scoring.CategoryDepression)
	assert.Equal(t, 9.0, got.Result.SubResults[scoring.CategoryDepression].RawScore)
}

func TestAssessComprehensive_FallsBack(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	var rs scoring.ResponseSet
	for q := 101; q <= 109; q++ {
		rs = append(rs, scoring.ValueAnswer(q, 1, scoring.CategoryDepression))
	}
	for q := 201; q <= 207; q++ {
		rs = append(rs, scoring.ValueAnswer(q, 1, scoring.CategoryAnxiety))
	}
	for q := 301; q <= 310; q++ {
		rs = append(rs, scoring.ValueAnswer(q, 2, scoring.CategoryStress))
	}
	got, err := c.AssessComprehensive(context.Background(), "comprehensive", rs)
	require.NoError(t, err)
	assert.True(t, got.Local)
	assert.Equal(t, 36.0, got.Result.TotalScore)
}

func TestGetTestDefinition(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tests/gad7", r.URL.Path)
		_, _ = w.Write([]byte(`{"code":"gad7","name":"GAD-7 (remote)","category":"anxiety"}`))
	})

	def, err := c.GetTestDefinition(context.Background(), "gad7")
	require.NoError(t, err)
	assert.Equal(t, "GAD-7 (remote)", def.Name)
}

func TestGetTestDefinition_FallsBack(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	def, err := c.GetTestDefinition(context.Background(), "gad7")
	require.NoError(t, err)
	assert.Len(t, def.Questions, 7)
}

func TestCanceledContextDoesNotFallBack(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Assess(ctx, "phq9", phq9Answers(0))
	assert.Error(t, err)
}
