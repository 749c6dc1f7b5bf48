// Package insights computes operational metrics over joined review+analysis
// rows: KPI headline numbers, topic trends, the outlet risk leaderboard, and
// the critical-incident list. Everything here is a pure function of
// (rows, filter); no ambient state.
package insights

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/guestpulse/guestpulse/pkg/models"
)

// Row is one joined review+analysis record, the unit of aggregation.
type Row struct {
	Review   models.Review   `json:"review"`
	Analysis models.Analysis `json:"analysis"`
}

// Filter restricts the rows a snapshot is computed over. Empty slices mean
// no restriction; zero Start/End mean the window is derived from the data
// (widest span) and rows with unparseable timestamps are retained.
// End is exclusive.
type Filter struct {
	Brands     []string  `json:"brands,omitempty"`
	Outlets    []string  `json:"outlets,omitempty"`
	Platforms  []string  `json:"platforms,omitempty"`
	OrderTypes []string  `json:"order_types,omitempty"`
	Start      time.Time `json:"start,omitempty"`
	End        time.Time `json:"end,omitempty"`
}

type Window struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	PrevStart time.Time `json:"prev_start"`
}

type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

type OutletSeverity struct {
	Outlet      string  `json:"outlet"`
	AvgSeverity float64 `json:"avg_severity"`
}

// OutletRisk is one leaderboard entry. Risk is a weighted composite of
// average severity, negative share, and the volume z-score clipped at zero.
type OutletRisk struct {
	Outlet        string  `json:"outlet"`
	AvgSeverity   float64 `json:"avg_severity"`
	NegativeShare float64 `json:"negative_share"`
	Volume        int     `json:"volume"`
	VolumeZ       float64 `json:"volume_z"`
	Risk          float64 `json:"risk"`
}

// TopicGrowth is the week-over-week change in a topic's occurrence count.
type TopicGrowth struct {
	Topic    string  `json:"topic"`
	ThisWeek int     `json:"this_week"`
	PrevWeek int     `json:"prev_week"`
	Growth   float64 `json:"growth"`
}

// Incident is one critical row: negative sentiment or severity >= 4.
type Incident struct {
	ID        string   `json:"id"`
	Timestamp string   `json:"timestamp"`
	Brand     string   `json:"brand"`
	Outlet    string   `json:"outlet"`
	Platform  string   `json:"platform"`
	Topics    []string `json:"topics"`
	Severity  int      `json:"severity"`
	Sentiment string   `json:"sentiment"`
	Text      string   `json:"text"`
}

// Snapshot is the full set of metrics for one filter selection.
type Snapshot struct {
	Total             int                       `json:"total"`
	NegativeShare     float64                   `json:"negative_share"`
	AvgSeverity       float64                   `json:"avg_severity"`
	VolumeDelta       float64                   `json:"volume_delta"`
	AutoReplyCoverage float64                   `json:"auto_reply_coverage"`
	SentimentByBrand  map[string]map[string]int `json:"sentiment_by_brand"`
	TopTopics         []TopicCount              `json:"top_topics"`
	SeverityByOutlet  []OutletSeverity          `json:"severity_by_outlet"`
	Heatmap           map[string]map[string]int `json:"heatmap"`
	Leaderboard       []OutletRisk              `json:"leaderboard"`
	TopicGrowth       []TopicGrowth             `json:"topic_growth"`
	Incidents         []Incident                `json:"incidents"`
	Window            Window                    `json:"window"`
}

const (
	topTopicsLimit   = 12
	outletChartLimit = 12
	topicGrowthLimit = 10
	incidentsLimit   = 15
	weekWindow       = 7 * 24 * time.Hour
)

// timestampLayouts are tried in order when parsing review timestamps.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// ParseTimestamp parses a review timestamp permissively. The second return
// is false when no known layout matches; such rows are excluded from
// date-bounded views but retained otherwise.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// Compute builds the snapshot for one filter selection over the full joined
// data set. Week-over-week topic growth and the previous-window volume are
// always computed over the full history (date-windowed only), independent of
// the set-membership filters.
func Compute(rows []Row, f Filter) Snapshot {
	window := deriveWindow(rows, f)
	dateBounded := !f.Start.IsZero() || !f.End.IsZero()

	current := filterRows(rows, f, window, dateBounded)

	snap := Snapshot{
		Total:            len(current),
		SentimentByBrand: map[string]map[string]int{},
		TopTopics:        []TopicCount{},
		SeverityByOutlet: []OutletSeverity{},
		Heatmap:          map[string]map[string]int{},
		Leaderboard:      []OutletRisk{},
		TopicGrowth:      topicGrowth(rows, window),
		Incidents:        []Incident{},
		Window:           window,
	}

	if len(current) == 0 {
		return snap
	}

	negatives := 0
	sevSum := 0
	for _, r := range current {
		if r.Analysis.Sentiment == models.SentimentNegative {
			negatives++
		}
		sevSum += r.Analysis.Severity

		byBrand, ok := snap.SentimentByBrand[r.Review.Brand]
		if !ok {
			byBrand = map[string]int{}
			snap.SentimentByBrand[r.Review.Brand] = byBrand
		}
		byBrand[r.Analysis.Sentiment]++
	}
	snap.NegativeShare = float64(negatives) / float64(len(current))
	snap.AvgSeverity = float64(sevSum) / float64(len(current))
	snap.VolumeDelta = volumeDelta(rows, current, window)
	snap.AutoReplyCoverage = autoReplyCoverage(current)
	snap.TopTopics = topTopics(current)
	snap.SeverityByOutlet = severityByOutlet(current)
	snap.Heatmap = heatmap(current)
	snap.Leaderboard = Leaderboard(current)
	snap.Incidents = criticalIncidents(current)

	return snap
}

// deriveWindow resolves the active [start, end) pair. An explicit filter
// wins; otherwise the window spans the parseable timestamps in the data,
// with end one day past the latest so the latest day is included.
func deriveWindow(rows []Row, f Filter) Window {
	start, end := f.Start, f.End
	if start.IsZero() && end.IsZero() {
		var minTS, maxTS time.Time
		for _, r := range rows {
			ts, ok := ParseTimestamp(r.Review.Timestamp)
			if !ok {
				continue
			}
			if minTS.IsZero() || ts.Before(minTS) {
				minTS = ts
			}
			if maxTS.IsZero() || ts.After(maxTS) {
				maxTS = ts
			}
		}
		start = minTS
		if !maxTS.IsZero() {
			end = maxTS.Add(24 * time.Hour)
		}
	}

	w := Window{Start: start, End: end}
	if !start.IsZero() {
		w.PrevStart = start.Add(-weekWindow)
	}
	return w
}

func matchSet(value string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	return false
}

func inWindow(ts time.Time, start, end time.Time) bool {
	if !start.IsZero() && ts.Before(start) {
		return false
	}
	if !end.IsZero() && !ts.Before(end) {
		return false
	}
	return true
}

func filterRows(rows []Row, f Filter, w Window, dateBounded bool) []Row {
	var out []Row
	for _, r := range rows {
		if !matchSet(r.Review.Brand, f.Brands) ||
			!matchSet(r.Review.Outlet, f.Outlets) ||
			!matchSet(r.Review.Platform, f.Platforms) ||
			!matchSet(strOr(r.Review.OrderType), f.OrderTypes) {
			continue
		}
		if dateBounded {
			ts, ok := ParseTimestamp(r.Review.Timestamp)
			if !ok || !inWindow(ts, w.Start, w.End) {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func strOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// volumeDelta compares the current filtered volume against the 7 days
// preceding the window start over the full history, with an empty previous
// window counted as 1 to keep the division defined.
func volumeDelta(all, current []Row, w Window) float64 {
	if w.Start.IsZero() {
		return 0
	}
	prev := 0
	for _, r := range all {
		ts, ok := ParseTimestamp(r.Review.Timestamp)
		if ok && inWindow(ts, w.PrevStart, w.Start) {
			prev++
		}
	}
	denom := prev
	if denom == 0 {
		denom = 1
	}
	return float64(len(current)-prev) / float64(denom)
}

// autoReplyCoverage is the approved fraction among positive/neutral rows,
// the ones eligible for auto-posted replies.
func autoReplyCoverage(rows []Row) float64 {
	eligible, approved := 0, 0
	for _, r := range rows {
		if r.Analysis.Sentiment == models.SentimentNegative {
			continue
		}
		eligible++
		if r.Analysis.Status == models.StatusApproved {
			approved++
		}
	}
	if eligible == 0 {
		eligible = 1
	}
	return float64(approved) / float64(eligible)
}

// explodeTopics yields one token per topic per row, trimmed, empties dropped.
func explodeTopics(rows []Row, visit func(row Row, topic string)) {
	for _, r := range rows {
		for _, t := range r.Analysis.Topics {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			visit(r, t)
		}
	}
}

func topTopics(rows []Row) []TopicCount {
	counts := map[string]int{}
	explodeTopics(rows, func(_ Row, topic string) {
		counts[topic]++
	})

	out := make([]TopicCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, TopicCount{Topic: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Topic < out[j].Topic
	})
	if len(out) > topTopicsLimit {
		out = out[:topTopicsLimit]
	}
	return out
}

func severityByOutlet(rows []Row) []OutletSeverity {
	sums := map[string]int{}
	counts := map[string]int{}
	for _, r := range rows {
		sums[r.Review.Outlet] += r.Analysis.Severity
		counts[r.Review.Outlet]++
	}

	out := make([]OutletSeverity, 0, len(sums))
	for outlet, sum := range sums {
		out = append(out, OutletSeverity{
			Outlet:      outlet,
			AvgSeverity: float64(sum) / float64(counts[outlet]),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgSeverity != out[j].AvgSeverity {
			return out[i].AvgSeverity > out[j].AvgSeverity
		}
		return out[i].Outlet < out[j].Outlet
	})
	if len(out) > outletChartLimit {
		out = out[:outletChartLimit]
	}
	return out
}

func heatmap(rows []Row) map[string]map[string]int {
	heat := map[string]map[string]int{}
	explodeTopics(rows, func(r Row, topic string) {
		byTopic, ok := heat[r.Review.Outlet]
		if !ok {
			byTopic = map[string]int{}
			heat[r.Review.Outlet] = byTopic
		}
		byTopic[topic]++
	})
	return heat
}

// Leaderboard ranks outlets by composite risk:
// 0.5*avg_severity + 0.4*negative_share + 0.1*clip(z(volume), 0), where the
// volume z-score uses the population standard deviation across outlets.
// Ties break on avg severity, then negative share, then outlet name.
func Leaderboard(rows []Row) []OutletRisk {
	type agg struct {
		sevSum    int
		negatives int
		volume    int
	}
	groups := map[string]*agg{}
	for _, r := range rows {
		g, ok := groups[r.Review.Outlet]
		if !ok {
			g = &agg{}
			groups[r.Review.Outlet] = g
		}
		g.sevSum += r.Analysis.Severity
		if r.Analysis.Sentiment == models.SentimentNegative {
			g.negatives++
		}
		g.volume++
	}
	if len(groups) == 0 {
		return []OutletRisk{}
	}

	volSum := 0
	for _, g := range groups {
		volSum += g.volume
	}
	meanV := float64(volSum) / float64(len(groups))

	var sqDiff float64
	for _, g := range groups {
		d := float64(g.volume) - meanV
		sqDiff += d * d
	}
	stdV := math.Sqrt(sqDiff / float64(len(groups)))
	if stdV == 0 {
		stdV = 1.0
	}

	out := make([]OutletRisk, 0, len(groups))
	for outlet, g := range groups {
		avgSev := float64(g.sevSum) / float64(g.volume)
		negShare := float64(g.negatives) / float64(g.volume)
		z := (float64(g.volume) - meanV) / stdV
		if z < 0 {
			z = 0
		}
		out = append(out, OutletRisk{
			Outlet:        outlet,
			AvgSeverity:   avgSev,
			NegativeShare: negShare,
			Volume:        g.volume,
			VolumeZ:       z,
			Risk:          0.5*avgSev + 0.4*negShare + 0.1*z,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Risk != out[j].Risk {
			return out[i].Risk > out[j].Risk
		}
		if out[i].AvgSeverity != out[j].AvgSeverity {
			return out[i].AvgSeverity > out[j].AvgSeverity
		}
		if out[i].NegativeShare != out[j].NegativeShare {
			return out[i].NegativeShare > out[j].NegativeShare
		}
		return out[i].Outlet < out[j].Outlet
	})
	return out
}

// topicGrowth compares topic counts between the current window and the 7
// days before it, over the full unfiltered history. A previous count of 0
// becomes 1 so the growth of a newly appearing topic is defined.
func topicGrowth(rows []Row, w Window) []TopicGrowth {
	if w.Start.IsZero() {
		return []TopicGrowth{}
	}

	thisW := map[string]int{}
	prevW := map[string]int{}
	explodeTopics(rows, func(r Row, topic string) {
		ts, ok := ParseTimestamp(r.Review.Timestamp)
		if !ok {
			return
		}
		switch {
		case inWindow(ts, w.Start, w.End):
			thisW[topic]++
		case inWindow(ts, w.PrevStart, w.Start):
			prevW[topic]++
		}
	})

	topics := map[string]bool{}
	for t := range thisW {
		topics[t] = true
	}
	for t := range prevW {
		topics[t] = true
	}

	out := make([]TopicGrowth, 0, len(topics))
	for t := range topics {
		prev := prevW[t]
		if prev == 0 {
			prev = 1
		}
		out = append(out, TopicGrowth{
			Topic:    t,
			ThisWeek: thisW[t],
			PrevWeek: prev,
			Growth:   float64(thisW[t]-prev) / float64(prev),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Growth != out[j].Growth {
			return out[i].Growth > out[j].Growth
		}
		return out[i].Topic < out[j].Topic
	})
	if len(out) > topicGrowthLimit {
		out = out[:topicGrowthLimit]
	}
	return out
}

// criticalIncidents returns the most recent rows that are negative or have
// severity >= 4. Rows with unparseable timestamps sort last.
func criticalIncidents(rows []Row) []Incident {
	type cand struct {
		row    Row
		ts     time.Time
		parsed bool
	}
	var crit []cand
	for _, r := range rows {
		if r.Analysis.Sentiment != models.SentimentNegative && r.Analysis.Severity < 4 {
			continue
		}
		ts, ok := ParseTimestamp(r.Review.Timestamp)
		crit = append(crit, cand{row: r, ts: ts, parsed: ok})
	}

	sort.SliceStable(crit, func(i, j int) bool {
		if crit[i].parsed != crit[j].parsed {
			return crit[i].parsed
		}
		return crit[i].ts.After(crit[j].ts)
	})
	if len(crit) > incidentsLimit {
		crit = crit[:incidentsLimit]
	}

	out := make([]Incident, 0, len(crit))
	for _, c := range crit {
		out = append(out, Incident{
			ID:        c.row.Review.ID,
			Timestamp: c.row.Review.Timestamp,
			Brand:     c.row.Review.Brand,
			Outlet:    c.row.Review.Outlet,
			Platform:  c.row.Review.Platform,
			Topics:    c.row.Analysis.Topics,
			Severity:  c.row.Analysis.Severity,
			Sentiment: c.row.Analysis.Sentiment,
			Text:      c.row.Review.Text,
		})
	}
	return out
}
