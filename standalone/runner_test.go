package standalone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/researchaccelerator-hub/odysee-scraper/client"
	"github.com/researchaccelerator-hub/odysee-scraper/common"
	"github.com/researchaccelerator-hub/odysee-scraper/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOdysee serves the proxy, comments and web API endpoints for one channel with two
// claims: a video and a repost, one per claim_search page.
type fakeOdysee struct {
	t      *testing.T
	server *httptest.Server

	mu    sync.Mutex
	calls map[string]int

	failViewCount bool
	unknownChan   bool
}

func newFakeOdysee(t *testing.T) *fakeOdysee {
	f := &fakeOdysee{t: t, calls: make(map[string]int)}
	mux := http.NewServeMux()
	mux.HandleFunc("/proxy", f.proxy)
	mux.HandleFunc("/comments", f.comments)
	mux.HandleFunc("/user/new", f.userNew)
	mux.HandleFunc("/file/view_count", f.viewCount)
	mux.HandleFunc("/reaction/list", f.reactions)
	mux.HandleFunc("/thumb/", func(w http.ResponseWriter, r *http.Request) {
		f.record("thumbnail")
		_, _ = w.Write([]byte("webp-bytes"))
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeOdysee) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeOdysee) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeOdysee) params(r *http.Request) map[string]any {
	var req struct {
		Params map[string]any `json:"params"`
	}
	body, err := io.ReadAll(r.Body)
	require.NoError(f.t, err)
	require.NoError(f.t, json.Unmarshal(body, &req))
	return req.Params
}

func writeResult(w http.ResponseWriter, result any) {
	_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "result": result})
}

func writeData(w http.ResponseWriter, data any) {
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "error": nil, "data": data})
}

func (f *fakeOdysee) proxy(w http.ResponseWriter, r *http.Request) {
	params := f.params(r)

	if ids, ok := params["claim_ids"].([]any); ok {
		if len(ids) == 1 && ids[0] == "chan" {
			f.record("channel")
			items := []any{}
			if !f.unknownChan {
				items = append(items, map[string]any{"claim_id": "chan", "canonical_url": "lbry://@chan#c"})
			}
			writeResult(w, map[string]any{"items": items, "total_pages": 1})
			return
		}
		f.record("lookup")
		writeResult(w, map[string]any{
			"items": []any{
				map[string]any{"claim_id": "ca", "canonical_url": "lbry://@alice#a", "value": map[string]any{"title": "Alice A"}},
			},
			"total_pages": 1,
		})
		return
	}

	f.record("claims")
	assert.Equal(f.t, []any{"chan"}, params["channel_ids"])
	assert.Equal(f.t, []any{"release_time"}, params["order_by"])

	var item map[string]any
	switch params["page"] {
	case float64(1):
		item = map[string]any{
			"claim_id":      "v1",
			"canonical_url": "lbry://@chan#c/first#1",
			"value_type":    "stream",
			"timestamp":     1699999999,
			"value": map[string]any{
				"title":        "First",
				"description":  "first video",
				"release_time": "1700000000",
				"video":        map[string]any{"duration": 125},
				"thumbnail":    map[string]any{"url": f.server.URL + "/thumb/v1.webp"},
			},
		}
	default:
		item = map[string]any{
			"claim_id":      "rp",
			"canonical_url": "lbry://@chan#c/rp#2",
			"value_type":    "repost",
			"timestamp":     1700000500,
			"value":         map[string]any{},
			"reposted_claim": map[string]any{
				"claim_id":      "orig",
				"canonical_url": "lbry://@other#o/orig#3",
				"value_type":    "stream",
				"timestamp":     1690000000,
				"value": map[string]any{
					"title":       "Orig",
					"description": "original video",
					"video":       map[string]any{"duration": 45},
				},
				"signing_channel": map[string]any{"claim_id": "other", "canonical_url": "lbry://@other#o"},
			},
		}
	}
	writeResult(w, map[string]any{"items": []any{item}, "total_pages": 2, "total_items": 2})
}

func (f *fakeOdysee) comments(w http.ResponseWriter, r *http.Request) {
	params := f.params(r)
	claimID, _ := params["claim_id"].(string)

	if params["page_size"] == float64(1) {
		f.record("comment_count")
		writeResult(w, map[string]any{"items": []any{}, "total_pages": 3, "total_items": 3})
		return
	}

	f.record("comments:" + claimID)
	var items []any
	switch claimID {
	case "v1":
		items = []any{
			map[string]any{"comment_id": "c", "parent_id": "b", "channel_id": "ca", "channel_name": "@alice", "comment": "reply2", "timestamp": 1700000300},
			map[string]any{"comment_id": "a", "channel_id": "ca", "channel_name": "@alice", "comment": "root", "timestamp": 1700000100, "replies": 1},
			map[string]any{"comment_id": "b", "parent_id": "a", "channel_id": "cb", "channel_name": "@bob", "comment": "reply1", "timestamp": 1700000200, "replies": 1},
		}
	case "orig":
		items = []any{
			map[string]any{"comment_id": "d", "channel_id": "cb", "channel_name": "@bob", "comment": "on the original", "timestamp": 1700000700},
		}
	default:
		writeResult(w, map[string]any{"total_pages": 1})
		return
	}
	writeResult(w, map[string]any{"items": items, "total_pages": 1, "total_items": len(items)})
}

func (f *fakeOdysee) userNew(w http.ResponseWriter, r *http.Request) {
	f.record("user_new")
	writeData(w, map[string]any{"auth_token": "token-123"})
}

func (f *fakeOdysee) viewCount(w http.ResponseWriter, r *http.Request) {
	f.record("view_count")
	require.NoError(f.t, r.ParseForm())
	assert.Equal(f.t, "token-123", r.PostForm.Get("auth_token"))
	if f.failViewCount {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	writeData(w, []int64{1000})
}

func (f *fakeOdysee) reactions(w http.ResponseWriter, r *http.Request) {
	f.record("reactions")
	require.NoError(f.t, r.ParseForm())
	claimID := r.PostForm.Get("claim_ids")
	writeData(w, map[string]any{
		"others_reactions": map[string]any{claimID: map[string]any{"like": 7, "dislike": 2}},
	})
}

func (f *fakeOdysee) config(t *testing.T) *common.ReportConfig {
	v, err := common.NewViper("")
	require.NoError(t, err)
	v.Set("channel_id", "chan")
	v.Set("timezone", "UTC")
	v.Set("output_dir", t.TempDir())
	v.Set("endpoints.proxy", f.server.URL+"/proxy")
	v.Set("endpoints.comments", f.server.URL+"/comments")
	v.Set("endpoints.api", f.server.URL)
	v.Set("timeout", 5*time.Second)

	cfg, err := common.LoadReportConfig(v)
	require.NoError(t, err)
	return cfg
}

func runReport(t *testing.T, cfg *common.ReportConfig, kind string) (string, error) {
	t.Helper()
	odyseeClient, err := client.NewOdyseeClient(cfg.ClientConfig())
	require.NoError(t, err)
	r, err := NewRunner(cfg, kind, odyseeClient)
	require.NoError(t, err)
	r.Console = io.Discard

	runErr := r.Run(context.Background())

	matches, err := filepath.Glob(filepath.Join(cfg.OutputDir, kind+"_chan_*.txt"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data), runErr
}

func readLog(t *testing.T, cfg *common.ReportConfig, kind string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, kind+"_chan.log"))
	require.NoError(t, err)
	return string(data)
}

func TestRunCommentsReport(t *testing.T) {
	fake := newFakeOdysee(t)
	cfg := fake.config(t)

	got, err := runReport(t, cfg, report.KindComments)
	require.NoError(t, err)

	want := strings.Join([]string{
		"Channel https://www.odysee.com/@chan:c id : chan",
		"",
		"https://odysee.com/@chan:c/first:1",
		"Date : 14/11/2023 22:13:20",
		"Id : v1",
		"Title : First",
		"Duration : 02M05S",
		"14/11/2023 22:15:00 Alice A (ca) : root",
		"    14/11/2023 22:16:40 @bob (cb) : reply1",
		"        14/11/2023 22:18:20 Alice A (ca) : reply2",
		"",
		"https://odysee.com/@chan:c/rp:2",
		"Date : 14/11/2023 22:21:40",
		"Id : rp",
		"Title : Orig",
		"Duration : 45S",
		"",
		"Original content :",
		"URL : https://odysee.com/@other:o/orig:3",
		"Id : orig",
		"Date original content : 22/07/2023 04:26:40",
		"Author : https://odysee.com/@other:o (other)",
		"14/11/2023 22:25:00 @bob (cb) : on the original",
		"",
	}, "\n") + "\n"
	assert.Equal(t, want, got)

	assert.Equal(t, 2, fake.count("claims"))
	assert.Equal(t, 1, fake.count("comments:v1"))
	assert.Equal(t, 1, fake.count("comments:orig"), "comments of a repost are read from the original")
	assert.Equal(t, 0, fake.count("comments:rp"))
	assert.Equal(t, 0, fake.count("user_new"), "the comments report never needs a session token")
	assert.Equal(t, 0, fake.count("comment_count"))

	logs := readLog(t, cfg, report.KindComments)
	assert.Contains(t, logs, "Starting program")
	assert.Contains(t, logs, "Execution was OK")
	assert.Contains(t, logs, "Ending program")
	assert.Contains(t, logs, `"run_id"`)
}

func TestRunVideosReport(t *testing.T) {
	fake := newFakeOdysee(t)
	cfg := fake.config(t)
	cfg.Thumbnails = true

	got, err := runReport(t, cfg, report.KindVideos)
	require.NoError(t, err)

	assert.Contains(t, got, strings.Join([]string{
		"Id : v1",
		"Title : First",
		"Duration : 02M05S",
		"Description : first video",
		"Views : 1000",
		"Likes : 7",
		"Dislikes : 2",
		"Comments : 3",
		"",
	}, "\n"))
	assert.Contains(t, got, strings.Join([]string{
		"Description : original video",
		"Views : 1000",
		"Likes : 7",
		"Dislikes : 2",
		"Comments : 3",
		"",
		"Original content :",
	}, "\n"))
	assert.NotContains(t, got, "reply1", "comment trees are opt-in for the videos report")

	assert.Equal(t, 1, fake.count("user_new"))
	assert.Equal(t, 2, fake.count("view_count"))
	assert.Equal(t, 2, fake.count("reactions"))
	assert.Equal(t, 2, fake.count("comment_count"))
	assert.Equal(t, 1, fake.count("thumbnail"), "the repost carries no thumbnail")

	thumbs, err := filepath.Glob(filepath.Join(cfg.OutputDir, "v1_thumbnail_*.webp"))
	require.NoError(t, err)
	require.Len(t, thumbs, 1)
	data, err := os.ReadFile(thumbs[0])
	require.NoError(t, err)
	assert.Equal(t, "webp-bytes", string(data))
}

func TestRunVideosReportWithComments(t *testing.T) {
	fake := newFakeOdysee(t)
	cfg := fake.config(t)
	cfg.Comments = true

	got, err := runReport(t, cfg, report.KindVideos)
	require.NoError(t, err)

	assert.Contains(t, got, strings.Join([]string{
		"Comments : 3",
		"14/11/2023 22:15:00 Alice A (ca) : root",
		"    14/11/2023 22:16:40 @bob (cb) : reply1",
		"        14/11/2023 22:18:20 Alice A (ca) : reply2",
		"",
	}, "\n"))
	assert.Equal(t, 0, fake.count("thumbnail"))
}

func TestRunVideosReportWithoutEngagement(t *testing.T) {
	fake := newFakeOdysee(t)
	cfg := fake.config(t)
	cfg.Engagement = false

	got, err := runReport(t, cfg, report.KindVideos)
	require.NoError(t, err)

	assert.Contains(t, got, "Views : N/A\nLikes : N/A\nDislikes : N/A\nComments : 3\n")
	assert.Equal(t, 0, fake.count("user_new"))
	assert.Equal(t, 0, fake.count("view_count"))
	assert.Equal(t, 0, fake.count("reactions"))
	assert.Equal(t, 2, fake.count("comment_count"))
}

func TestRunUnknownChannel(t *testing.T) {
	fake := newFakeOdysee(t)
	fake.unknownChan = true
	cfg := fake.config(t)

	got, err := runReport(t, cfg, report.KindComments)

	require.Error(t, err)
	var notFound *client.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "chan", notFound.ID)
	assert.Empty(t, got)
	assert.Equal(t, 0, fake.count("claims"))

	logs := readLog(t, cfg, report.KindComments)
	assert.Contains(t, logs, "Execution had errors")
	assert.Contains(t, logs, "Ending program")
	assert.NotContains(t, logs, "Execution was OK")
}

func TestRunStopsOnStatFailure(t *testing.T) {
	fake := newFakeOdysee(t)
	fake.failViewCount = true
	cfg := fake.config(t)

	got, err := runReport(t, cfg, report.KindVideos)

	require.Error(t, err)
	var transport *client.TransportError
	require.True(t, errors.As(err, &transport))
	assert.Equal(t, http.StatusInternalServerError, transport.StatusCode)

	// the first claim block is left unfinished and nothing after it is written
	assert.Contains(t, got, "Id : v1")
	assert.NotContains(t, got, "Views :")
	assert.NotContains(t, got, "Id : rp")
	assert.Equal(t, 1, fake.count("claims"))
	assert.Contains(t, readLog(t, cfg, report.KindVideos), "Execution had errors")
}

func TestRunLogsAppendAcrossRuns(t *testing.T) {
	fake := newFakeOdysee(t)
	cfg := fake.config(t)

	odyseeClient, err := client.NewOdyseeClient(cfg.ClientConfig())
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		r, err := NewRunner(cfg, report.KindComments, odyseeClient)
		require.NoError(t, err)
		var console bytes.Buffer
		r.Console = &console
		require.NoError(t, r.Run(context.Background()))
		assert.Contains(t, console.String(), "Execution was OK")
	}

	assert.Equal(t, 2, strings.Count(readLog(t, cfg, report.KindComments), "Starting program"))
}

func TestNewRunnerUnknownKind(t *testing.T) {
	fake := newFakeOdysee(t)
	cfg := fake.config(t)

	_, err := NewRunner(cfg, "podcasts", nil)
	assert.Error(t, err)
}

func TestConfigureLoggingRejectsUnknownLevel(t *testing.T) {
	dates, err := common.NewDateFormatter("UTC", common.DateLayouts{Display: "x", DB: "2006", File: "y"})
	require.NoError(t, err)

	_, err = configureLogging(io.Discard, io.Discard, "loud", "2006", dates)
	assert.Error(t, err)
}
