package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"orgcal/internal/model"
)

func TestPointInTimeString(t *testing.T) {
	tests := []struct {
		p    model.PointInTime
		want string
	}{
		{model.Date(2022, time.July, 25), "2022-07-25"},
		{model.DateTime(2022, time.July, 26, 10, 0, 0), "2022-07-26T10:00:00"},
		{model.Date(2022, time.July, 26).AsDateTime(), "2022-07-26T00:00:00"},
		{model.DateTime(2022, time.January, 2, 3, 4, 5), "2022-01-02T03:04:05"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestPointInTimeJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		A model.PointInTime `json:"a"`
		B model.PointInTime `json:"b"`
	}{model.Date(2022, time.July, 25), model.DateTime(2022, time.July, 25, 18, 0, 0)})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"a":"2022-07-25","b":"2022-07-25T18:00:00"}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	var p model.PointInTime
	if err := json.Unmarshal([]byte(`"2022-07-25T18:00:00"`), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !p.HasTime() || p.String() != "2022-07-25T18:00:00" {
		t.Errorf("Unmarshal = %v (hasTime=%v)", p, p.HasTime())
	}
	if err := json.Unmarshal([]byte(`"not a date"`), &p); err == nil {
		t.Error("expected error for invalid date")
	}
}

func TestPointInTimeAsDateTimeKeepsValue(t *testing.T) {
	d := model.Date(2022, time.July, 25)
	dt := d.AsDateTime()
	if d.HasTime() {
		t.Error("Date() should not carry a time")
	}
	if !dt.HasTime() {
		t.Error("AsDateTime() should carry a time")
	}
	if !d.Time().Equal(dt.Time()) {
		t.Errorf("AsDateTime changed the instant: %v vs %v", d.Time(), dt.Time())
	}
	if d.Equal(dt) {
		t.Error("Equal should distinguish date-only from date-time")
	}
}

func TestFromTimeDropsLocation(t *testing.T) {
	loc := time.FixedZone("X", 9*3600)
	p := model.FromTime(time.Date(2022, 7, 25, 23, 30, 0, 0, loc))
	if got := p.String(); got != "2022-07-25T23:30:00" {
		t.Errorf("FromTime = %q, want wall clock 2022-07-25T23:30:00", got)
	}
}
