package tracking

import (
	"strings"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/stenmark/stone-finder/pkg/types"
)

var (
	_ types.Tracking = NoopTracking{}
	_ types.Tracking = &RabbitTracking{}
)

func TestSearchEventJson(t *testing.T) {
	filters := types.NewFilters().
		WithQuery("sapphire").
		WithTerm(types.DimColor, "blue")
	data, err := sonic.Marshal(&SearchEvent{
		BaseEvent:       &BaseEvent{Event: 1, SessionId: "s-1", Ts: 1700000000},
		Filters:         filters,
		NumberOfResults: 12,
		Page:            2,
	})
	if err != nil {
		t.Fatalf("Expected marshal to work, got %v", err)
	}
	body := string(data)
	for _, field := range []string{`"session_id":"s-1"`, `"event":1`, `"ts":1700000000`, `"query":"sapphire"`, `"noi":12`, `"page":2`} {
		if !strings.Contains(body, field) {
			t.Errorf("Expected payload to contain %s but got %s", field, body)
		}
	}
}

func TestBrowseEventJson(t *testing.T) {
	data, err := sonic.Marshal(&BrowseEvent{
		BaseEvent: &BaseEvent{Event: 4, SessionId: "s-2", Ts: 1700000001},
		BrowseId:  "b-9",
		Page:      3,
	})
	if err != nil {
		t.Fatalf("Expected marshal to work, got %v", err)
	}
	body := string(data)
	for _, field := range []string{`"event":4`, `"browse_id":"b-9"`, `"page":3`} {
		if !strings.Contains(body, field) {
			t.Errorf("Expected payload to contain %s but got %s", field, body)
		}
	}
}
