package models

import (
	"math"
	"sort"
	"time"
)

type EventType string

const (
	EventPageview    EventType = "pageview"
	EventCTAClick    EventType = "cta_click"
	EventFormSubmit  EventType = "form_submit"
	EventProductView EventType = "product_view"
	EventAddToCart   EventType = "add_to_cart"
)

// EventTypes lists every accepted analytics event type.
var EventTypes = []EventType{EventPageview, EventCTAClick, EventFormSubmit, EventProductView, EventAddToCart}

func (t EventType) Valid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// MaxAnalyticsEvents caps the event log; the oldest events are dropped first.
const MaxAnalyticsEvents = 10000

type EventMetadata struct {
	CTAText     string `json:"ctaText,omitempty"     bson:"ctaText,omitempty"`
	CTAPosition string `json:"ctaPosition,omitempty" bson:"ctaPosition,omitempty"`
	ProductID   string `json:"productId,omitempty"   bson:"productId,omitempty"`
	FormType    string `json:"formType,omitempty"    bson:"formType,omitempty"`
	Referrer    string `json:"referrer,omitempty"    bson:"referrer,omitempty"`
	UserAgent   string `json:"userAgent,omitempty"   bson:"userAgent,omitempty"`
	SessionID   string `json:"sessionId,omitempty"   bson:"sessionId,omitempty"`
}

// AnalyticsEvent is one tracked visitor interaction. Events are append-only.
type AnalyticsEvent struct {
	ID        string        `json:"id"        bson:"_id"`
	SiteID    string        `json:"siteId"    bson:"siteId"`
	Type      EventType     `json:"type"      bson:"type"`
	Path      string        `json:"path"      bson:"path"`
	Metadata  EventMetadata `json:"metadata"  bson:"metadata"`
	Timestamp time.Time     `json:"timestamp" bson:"timestamp"`
}

type PageStat struct {
	Path  string `json:"path"`
	Views int    `json:"views"`
}

type CTAStat struct {
	Text   string `json:"text"`
	Clicks int    `json:"clicks"`
}

type DailyStat struct {
	Date      string `json:"date"`
	Pageviews int    `json:"pageviews"`
	Clicks    int    `json:"clicks"`
}

type AnalyticsStats struct {
	SiteID         string      `json:"siteId"`
	TotalPageviews int         `json:"totalPageviews"`
	TotalClicks    int         `json:"totalClicks"`
	TopPages       []PageStat  `json:"topPages"`
	TopCTAs        []CTAStat   `json:"topCTAs"`
	DailyStats     []DailyStat `json:"dailyStats"`
	ConversionRate float64     `json:"conversionRate"`
	LastUpdated    time.Time   `json:"lastUpdated"`
}

const (
	statsTopN      = 10
	statsDays      = 30
	unknownCTAText = "Unknown CTA"
	dayLayout      = "2006-01-02"
)

// ComputeStats aggregates the events of one site. Events of other sites are
// ignored. The daily series covers the 30 UTC days ending on now's date.
func ComputeStats(siteID string, events []AnalyticsEvent, now time.Time) AnalyticsStats {
	pages := newCounter()
	ctas := newCounter()
	daily := make(map[string]*DailyStat, statsDays)

	series := make([]DailyStat, statsDays)
	today := now.UTC()
	for i := range series {
		day := today.AddDate(0, 0, -(statsDays - 1 - i)).Format(dayLayout)
		series[i] = DailyStat{Date: day}
		daily[day] = &series[i]
	}

	var pageviews, clicks int
	for _, e := range events {
		if e.SiteID != siteID {
			continue
		}
		day := daily[e.Timestamp.UTC().Format(dayLayout)]

		switch e.Type {
		case EventPageview:
			pageviews++
			pages.add(e.Path)
			if day != nil {
				day.Pageviews++
			}
		case EventCTAClick:
			clicks++
			text := e.Metadata.CTAText
			if text == "" {
				text = unknownCTAText
			}
			ctas.add(text)
			if day != nil {
				day.Clicks++
			}
		}
	}

	stats := AnalyticsStats{
		SiteID:         siteID,
		TotalPageviews: pageviews,
		TotalClicks:    clicks,
		TopPages:       []PageStat{},
		TopCTAs:        []CTAStat{},
		DailyStats:     series,
		ConversionRate: ConversionRate(clicks, pageviews),
		LastUpdated:    now,
	}
	for _, kv := range pages.top(statsTopN) {
		stats.TopPages = append(stats.TopPages, PageStat{Path: kv.key, Views: kv.n})
	}
	for _, kv := range ctas.top(statsTopN) {
		stats.TopCTAs = append(stats.TopCTAs, CTAStat{Text: kv.key, Clicks: kv.n})
	}
	return stats
}

// ConversionRate is clicks/pageviews as a percentage rounded to two
// decimals, or 0 when there are no pageviews.
func ConversionRate(clicks, pageviews int) float64 {
	if pageviews == 0 {
		return 0
	}
	return math.Round(float64(clicks)/float64(pageviews)*100*100) / 100
}

type keyCount struct {
	key string
	n   int
}

// counter counts keys and remembers first-seen order for tie breaking.
type counter struct {
	index map[string]int
	items []keyCount
}

func newCounter() *counter { return &counter{index: make(map[string]int)} }

func (c *counter) add(key string) {
	if i, ok := c.index[key]; ok {
		c.items[i].n++
		return
	}
	c.index[key] = len(c.items)
	c.items = append(c.items, keyCount{key: key, n: 1})
}

func (c *counter) top(n int) []keyCount {
	out := append([]keyCount(nil), c.items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].n > out[j].n })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
