package source

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func doc(id string, created time.Time) Document {
	return Document{
		ID:         id,
		Kind:       KindInvoice,
		Status:     "paid",
		Currency:   "eur",
		Created:    created,
		TotalMinor: 1000,
		Customer:   Customer{ID: "cus_" + id, Country: "DE"},
	}
}

func TestFileSourceWindowAndOrder(t *testing.T) {
	jan := time.Date(2021, time.January, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2021, time.February, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2021, time.March, 10, 0, 0, 0, 0, time.UTC)

	// dumped out of order on purpose
	docs := []Document{doc("in_3", mar), doc("in_1", jan), doc("in_2b", feb), doc("in_2a", feb)}
	raw, err := json.Marshal(docs)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "documents.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	cache := NewCache()
	src := NewFileSource(path, cache)
	from := time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)
	got, err := src.Documents(context.Background(), from, to)
	if err != nil {
		t.Fatal(err)
	}

	wantIDs := []string{"in_1", "in_2a", "in_2b"}
	if len(got) != len(wantIDs) {
		t.Fatalf("got %d documents, want %d", len(got), len(wantIDs))
	}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}

	// the whole dump is memoized, including out-of-window documents
	if n := cache.Len(); n != 4 {
		t.Errorf("cache holds %d documents, want 4", n)
	}
}

func TestFileSourceServesFromCache(t *testing.T) {
	jan := time.Date(2021, time.January, 10, 0, 0, 0, 0, time.UTC)
	raw, err := json.Marshal([]Document{doc("in_1", jan)})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "documents.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewFileSource(path, NewCache())
	from := time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2021, time.February, 1, 0, 0, 0, 0, time.UTC)
	if _, err := src.Documents(context.Background(), from, to); err != nil {
		t.Fatal(err)
	}

	// the second read must not touch the file again
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	got, err := src.Documents(context.Background(), from, to)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "in_1" {
		t.Errorf("got %+v", got)
	}
}

func TestCacheReset(t *testing.T) {
	c := NewCache()
	c.Fill([]Document{doc("in_1", time.Now())})
	if n := c.Len(); n != 1 {
		t.Fatalf("cache holds %d documents", n)
	}
	c.Reset()
	if n := c.Len(); n != 0 {
		t.Errorf("cache holds %d documents after reset", n)
	}
	if _, ok := c.Documents(); ok {
		t.Error("reset cache still reports a cached dump")
	}
}

func TestMemorySourcePreservesSeedOrder(t *testing.T) {
	jan := time.Date(2021, time.January, 10, 0, 0, 0, 0, time.UTC)
	m := NewMemory(doc("in_b", jan), doc("in_a", jan))
	got, err := m.Documents(context.Background(),
		time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2021, time.February, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "in_b" || got[1].ID != "in_a" {
		t.Errorf("got %+v", got)
	}
}

func TestCurrencyCode(t *testing.T) {
	d := doc("in_1", time.Now())
	d.Currency = "eur"
	total, err := d.Total()
	if err != nil {
		t.Fatal(err)
	}
	if total.Curr().Code() != "EUR" {
		t.Errorf("currency %s", total.Curr().Code())
	}
}
