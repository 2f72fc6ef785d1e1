//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

func baseURL() string {
	if v := os.Getenv("SURVEYAPP_TEST_BASE_URL"); strings.TrimSpace(v) != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://127.0.0.1:18080"
}

func TestReviewJourneyIntegration(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}
	base := baseURL()

	adminEmail := fmt.Sprintf("integration_%d@example.com", time.Now().UnixNano())
	password := "Secret123!"

	var registerResp struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
	}
	doPost(t, client, base+"/api/auth/register", "", map[string]string{
		"email":    adminEmail,
		"password": password,
	}, &registerResp)
	if registerResp.Token == "" {
		t.Fatalf("unexpected register response: %+v", registerResp)
	}
	token := registerResp.Token

	// Two spellings of the same school: full-width latin plus extra
	// punctuation must land on the one entity the first submission created.
	schoolName := fmt.Sprintf("Integration High %d", time.Now().UnixNano())
	variant := strings.ReplaceAll(schoolName, " ", "　") + "・"

	var firstResp struct {
		ReviewID      string `json:"review_id"`
		SchoolID      string `json:"school_id"`
		SchoolCreated bool   `json:"school_created"`
	}
	doPost(t, client, base+"/api/reviews", "", map[string]any{
		"school_name": schoolName,
		"rating":      4,
		"comment":     "good teachers",
	}, &firstResp)
	if firstResp.ReviewID == "" || !firstResp.SchoolCreated {
		t.Fatalf("unexpected first submission response: %+v", firstResp)
	}

	var secondResp struct {
		ReviewID      string `json:"review_id"`
		SchoolID      string `json:"school_id"`
		SchoolCreated bool   `json:"school_created"`
	}
	doPost(t, client, base+"/api/reviews", "", map[string]any{
		"school_name": variant,
		"rating":      2,
	}, &secondResp)
	if secondResp.SchoolCreated {
		t.Fatalf("variant spelling created a second school: %+v", secondResp)
	}
	if secondResp.SchoolID != firstResp.SchoolID {
		t.Fatalf("variant resolved to %s, want %s", secondResp.SchoolID, firstResp.SchoolID)
	}

	doPost(t, client, base+"/api/admin/schools/"+firstResp.SchoolID+"/approve", token, map[string]any{}, nil)

	var summary struct {
		SchoolID     string  `json:"school_id"`
		Status       string  `json:"status"`
		TotalReviews int     `json:"total_reviews"`
		Average      float64 `json:"average_rating"`
	}
	doGet(t, client, base+"/api/schools/"+firstResp.SchoolID+"/summary", &summary)
	if summary.TotalReviews != 2 {
		t.Fatalf("expected 2 reviews in summary, got %+v", summary)
	}
	if summary.Status != "active" {
		t.Fatalf("expected active school after approval, got %q", summary.Status)
	}

	// Merge a duplicate entity into the approved one and verify the search
	// surface only ever shows the survivor.
	dupName := schoolName + " Annex"
	var dupResp struct {
		SchoolID string `json:"school_id"`
	}
	doPost(t, client, base+"/api/reviews", "", map[string]any{
		"school_name": dupName,
		"rating":      5,
	}, &dupResp)

	var mergeResp struct {
		ReviewsMoved   int  `json:"reviews_moved"`
		NameAliasAdded bool `json:"name_alias_added"`
	}
	doPost(t, client, base+"/api/admin/schools/"+dupResp.SchoolID+"/merge", token, map[string]string{
		"target_id": firstResp.SchoolID,
	}, &mergeResp)
	if mergeResp.ReviewsMoved != 1 || !mergeResp.NameAliasAdded {
		t.Fatalf("unexpected merge response: %+v", mergeResp)
	}

	var again struct {
		ReviewID string `json:"review_id"`
		SchoolID string `json:"school_id"`
	}
	doPost(t, client, base+"/api/reviews", "", map[string]any{
		"school_name": dupName,
		"rating":      3,
	}, &again)
	if again.SchoolID != firstResp.SchoolID {
		t.Fatalf("post-merge submission resolved to %s, want survivor %s", again.SchoolID, firstResp.SchoolID)
	}

	doGet(t, client, base+"/api/schools/"+firstResp.SchoolID+"/summary", &summary)
	if summary.TotalReviews != 4 {
		t.Fatalf("expected 4 reviews after merge, got %+v", summary)
	}
}

func doPost(t *testing.T, client *http.Client, url, token string, body any, out any) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("http post %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("unexpected status %d for %s: %s", resp.StatusCode, url, string(bodyBytes))
	}
	if out != nil {
		decoder := json.NewDecoder(resp.Body)
		if err := decoder.Decode(out); err != nil && err != io.EOF {
			t.Fatalf("decode response from %s: %v", url, err)
		}
	}
}

func doGet(t *testing.T, client *http.Client, url string, out any) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("http get %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("unexpected status %d for %s: %s", resp.StatusCode, url, string(bodyBytes))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("decode response from %s: %v", url, err)
		}
	}
}
