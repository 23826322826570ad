package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/surpluslink/go-surpluslink/internal/capacity"
	"github.com/surpluslink/go-surpluslink/internal/coordinator"
	"github.com/surpluslink/go-surpluslink/internal/models"
	"github.com/surpluslink/go-surpluslink/internal/notify"
	"github.com/surpluslink/go-surpluslink/internal/repository"
)

var testNow = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	router *gin.Engine
	db     *repository.SQLiteDB
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := repository.NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clock := func() time.Time { return testNow }
	tracker := capacity.NewTrackerAt(clock)
	broadcaster := notify.NewBroadcaster()
	t.Cleanup(broadcaster.Close)

	coord := coordinator.New(db, tracker, broadcaster, coordinator.Config{Now: clock})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(coord, db, nil, broadcaster).RegisterRoutes(router)

	return &fixture{router: router, db: db}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) postDonation(t *testing.T, quantity int) string {
	t.Helper()

	w := f.do(t, "POST", "/api/donations", gin.H{
		"donor_id":      "donor_1",
		"title":         "Bakery surplus",
		"quantity":      quantity,
		"food_category": "packaged",
		"coordinates":   gin.H{"latitude": 40.71, "longitude": -74.0},
		"expiry_date":   testNow.Add(8 * time.Hour),
		"pickup_window": gin.H{
			"start": testNow.Add(time.Hour),
			"end":   testNow.Add(3 * time.Hour),
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("post donation: status %d body %s", w.Code, w.Body.String())
	}

	var d models.Donation
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode donation: %v", err)
	}
	return d.ID
}

func (f *fixture) addNGO(t *testing.T, id string, cap int) {
	t.Helper()

	w := f.do(t, "PUT", "/api/profiles/ngo/"+id, gin.H{
		"name":           "Shelter " + id,
		"daily_capacity": cap,
		"coordinates":    gin.H{"latitude": 40.72, "longitude": -74.01},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("upsert ngo: status %d body %s", w.Code, w.Body.String())
	}
}

func (f *fixture) addVolunteer(t *testing.T, id string, maxWeight int) {
	t.Helper()

	w := f.do(t, "PUT", "/api/profiles/volunteer/"+id, gin.H{
		"name":       "Vol " + id,
		"max_weight": maxWeight,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("upsert volunteer: status %d body %s", w.Code, w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	f := setup(t)

	w := f.do(t, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestPostDonation_ValidationMapsTo400(t *testing.T) {
	f := setup(t)

	w := f.do(t, "POST", "/api/donations", gin.H{
		"donor_id":      "donor_1",
		"title":         "No quantity",
		"quantity":      0,
		"food_category": "bakery",
		"expiry_date":   testNow.Add(8 * time.Hour),
		"pickup_window": gin.H{
			"start": testNow.Add(time.Hour),
			"end":   testNow.Add(2 * time.Hour),
		},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp["field"] != "quantity" {
		t.Errorf("expected quantity field flagged, got %q", resp["field"])
	}
}

func TestPostDonation_AcceptsEveryFoodCategory(t *testing.T) {
	f := setup(t)

	for _, category := range []string{"cooked", "raw", "packaged"} {
		w := f.do(t, "POST", "/api/donations", gin.H{
			"donor_id":      "donor_1",
			"title":         category + " surplus",
			"quantity":      10,
			"food_category": category,
			"coordinates":   gin.H{"latitude": 40.71, "longitude": -74.0},
			"expiry_date":   testNow.Add(8 * time.Hour),
			"pickup_window": gin.H{
				"start": testNow.Add(time.Hour),
				"end":   testNow.Add(3 * time.Hour),
			},
		})
		if w.Code != http.StatusCreated {
			t.Errorf("category %q: expected 201, got %d: %s", category, w.Code, w.Body.String())
		}
	}
}

func TestClaim_SecondClaimerGets409(t *testing.T) {
	f := setup(t)
	f.addNGO(t, "ngo_a", 100)
	f.addNGO(t, "ngo_b", 100)
	id := f.postDonation(t, 20)

	if w := f.do(t, "POST", "/api/donations/"+id+"/claim", gin.H{"ngo_id": "ngo_a"}); w.Code != http.StatusOK {
		t.Fatalf("first claim: status %d body %s", w.Code, w.Body.String())
	}

	w := f.do(t, "POST", "/api/donations/"+id+"/claim", gin.H{"ngo_id": "ngo_b"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["kind"] != string(models.ConflictAlreadyClaimed) {
		t.Errorf("expected already_claimed kind, got %q", resp["kind"])
	}
}

func TestConfirmPickup_MissingPhotoMapsTo412(t *testing.T) {
	f := setup(t)
	f.addNGO(t, "ngo_a", 100)
	f.addVolunteer(t, "vol_1", 0)
	id := f.postDonation(t, 20)

	f.do(t, "POST", "/api/donations/"+id+"/claim", gin.H{"ngo_id": "ngo_a"})
	f.do(t, "POST", "/api/donations/"+id+"/accept", gin.H{"volunteer_id": "vol_1"})

	w := f.do(t, "POST", "/api/donations/"+id+"/confirm-pickup", gin.H{
		"actor_id": "vol_1",
		"photo":    "",
	})
	if w.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["checkpoint"] != models.CheckpointPickup {
		t.Errorf("expected pickup checkpoint, got %q", resp["checkpoint"])
	}
}

func TestComplete_BeforeDeliveryMapsTo422(t *testing.T) {
	f := setup(t)
	f.addNGO(t, "ngo_a", 100)
	id := f.postDonation(t, 20)

	f.do(t, "POST", "/api/donations/"+id+"/claim", gin.H{"ngo_id": "ngo_a"})

	w := f.do(t, "POST", "/api/donations/"+id+"/complete", gin.H{
		"actor_id": "ngo_a",
		"rating":   5,
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetDonation_UnknownIDMapsTo404(t *testing.T) {
	f := setup(t)

	w := f.do(t, "GET", "/api/donations/don_missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestListFeed_RequiresNGO(t *testing.T) {
	f := setup(t)

	if w := f.do(t, "GET", "/api/feed", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without ngo_id, got %d", w.Code)
	}
}

func TestListFeed_ReturnsActiveDonations(t *testing.T) {
	f := setup(t)
	f.addNGO(t, "ngo_a", 100)
	for i := 0; i < 3; i++ {
		f.postDonation(t, 10+i)
	}

	w := f.do(t, "GET", "/api/feed?ngo_id=ngo_a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("feed: status %d body %s", w.Code, w.Body.String())
	}

	var feed coordinator.Feed
	if err := json.Unmarshal(w.Body.Bytes(), &feed); err != nil {
		t.Fatalf("decode feed: %v", err)
	}
	if len(feed.Donations) != 3 {
		t.Errorf("expected 3 donations in feed, got %d", len(feed.Donations))
	}
}

func TestListMissions_FiltersByWeight(t *testing.T) {
	f := setup(t)
	f.addNGO(t, "ngo_a", 200)
	f.addVolunteer(t, "vol_light", 15)

	heavy := f.postDonation(t, 40)
	light := f.postDonation(t, 10)
	f.do(t, "POST", "/api/donations/"+heavy+"/claim", gin.H{"ngo_id": "ngo_a"})
	f.do(t, "POST", "/api/donations/"+light+"/claim", gin.H{"ngo_id": "ngo_a"})

	w := f.do(t, "GET", "/api/missions?volunteer_id=vol_light", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("missions: status %d body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Missions []models.Donation `json:"missions"`
		Count    int               `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode missions: %v", err)
	}
	if resp.Count != 1 || resp.Missions[0].ID != light {
		t.Errorf("expected only the light mission, got %+v", resp.Missions)
	}
}

func TestCancelMission_UnknownReasonRejected(t *testing.T) {
	f := setup(t)

	w := f.do(t, "POST", "/api/donations/don_x/cancel-mission", gin.H{
		"volunteer_id": "vol_1",
		"reason":       "bored",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown reason, got %d", w.Code)
	}
}

func TestStats_RequiresActor(t *testing.T) {
	f := setup(t)

	if w := f.do(t, "GET", "/api/stats", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without actor, got %d", w.Code)
	}

	w := f.do(t, "GET", "/api/stats?donor_id=donor_1", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for donor stats, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUploadPhoto_UnconfiguredStoreMapsTo503(t *testing.T) {
	f := setup(t)

	w := f.do(t, "POST", "/api/uploads", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without photo store, got %d", w.Code)
	}
}

func TestRateLimit_Enforced(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(2))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	limited := 0
	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/ping", nil)
		router.ServeHTTP(w, req)
		if w.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited == 0 {
		t.Error("expected at least one request to be rate limited")
	}
}

func TestFullLifecycleOverHTTP(t *testing.T) {
	f := setup(t)
	f.addNGO(t, "ngo_a", 100)
	f.addVolunteer(t, "vol_1", 0)
	id := f.postDonation(t, 25)

	steps := []struct {
		method, path string
		body         gin.H
	}{
		{"POST", fmt.Sprintf("/api/donations/%s/claim", id), gin.H{"ngo_id": "ngo_a"}},
		{"POST", fmt.Sprintf("/api/donations/%s/accept", id), gin.H{"volunteer_id": "vol_1"}},
		{"PATCH", fmt.Sprintf("/api/donations/%s/delivery-status", id), gin.H{"status": "at_pickup"}},
		{"POST", fmt.Sprintf("/api/donations/%s/confirm-pickup", id), gin.H{"actor_id": "vol_1", "photo": "https://photos/p1.jpg"}},
		{"PATCH", fmt.Sprintf("/api/donations/%s/delivery-status", id), gin.H{"status": "arrived_at_delivery"}},
		{"POST", fmt.Sprintf("/api/donations/%s/confirm-delivery", id), gin.H{"actor_id": "vol_1", "photo": "https://photos/p2.jpg"}},
		{"POST", fmt.Sprintf("/api/donations/%s/complete", id), gin.H{"actor_id": "ngo_a", "rating": 5}},
	}
	for _, s := range steps {
		if w := f.do(t, s.method, s.path, s.body); w.Code != http.StatusOK {
			t.Fatalf("%s %s: status %d body %s", s.method, s.path, w.Code, w.Body.String())
		}
	}

	w := f.do(t, "GET", "/api/donations/"+id, nil)
	var d models.Donation
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode donation: %v", err)
	}
	if d.Status != models.StatusCompleted {
		t.Errorf("expected completed, got %s", d.Status)
	}

	cw := f.do(t, "GET", "/api/donations/"+id+"/custody", nil)
	var custody struct {
		Records []models.CustodyRecord `json:"records"`
	}
	if err := json.Unmarshal(cw.Body.Bytes(), &custody); err != nil {
		t.Fatalf("decode custody: %v", err)
	}
	if len(custody.Records) != 2 {
		t.Errorf("expected 2 custody records, got %d", len(custody.Records))
	}
}
