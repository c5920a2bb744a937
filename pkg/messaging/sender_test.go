package messaging

import (
	"strings"
	"testing"

	"github.com/bytedance/sonic"
)

func TestTopicNames(t *testing.T) {
	if name := getName("gems", StonesUpserted); name != "gems_stones_upserted" {
		t.Errorf("Expected gems_stones_upserted but got %s", name)
	}
	if name := getName("gems", StoneDeleted); name != "gems_stone_deleted" {
		t.Errorf("Expected gems_stone_deleted but got %s", name)
	}
	if name := getName("staging", PriceLowered); name != "staging_price_lowered" {
		t.Errorf("Expected staging_price_lowered but got %s", name)
	}
}

func TestPriceDropJson(t *testing.T) {
	drop := PriceDrop{
		Id:       42,
		Sku:      "ST-9001",
		Title:    "Ceylon sapphire 1.2ct",
		OldPrice: 150000,
		NewPrice: 120000,
	}
	data, err := sonic.Marshal(drop)
	if err != nil {
		t.Fatalf("Expected marshal to work, got %v", err)
	}
	body := string(data)
	for _, field := range []string{`"id":42`, `"sku":"ST-9001"`, `"oldPrice":150000`, `"newPrice":120000`} {
		if !strings.Contains(body, field) {
			t.Errorf("Expected payload to contain %s but got %s", field, body)
		}
	}
	if strings.Contains(body, "currency") {
		t.Errorf("Expected empty currency to be omitted but got %s", body)
	}

	var back PriceDrop
	if err := sonic.Unmarshal(data, &back); err != nil {
		t.Fatalf("Expected unmarshal to work, got %v", err)
	}
	if back != drop {
		t.Errorf("Expected %v but got %v", drop, back)
	}
}
