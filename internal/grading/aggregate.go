package grading

import (
	"strings"
	"time"
)

// OtherGroup names the implicit bucket for items whose group matches no course group.
const OtherGroup = "Other"

// ItemKind distinguishes the sources of gradable items.
type ItemKind string

const (
	ItemAssignment      ItemKind = "assignment"
	ItemGroupAssignment ItemKind = "group_assignment"
	ItemDiscussion      ItemKind = "discussion"
)

// CourseGroup is a named weight bucket. Weights need not sum to 100.
type CourseGroup struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// Course carries what aggregation needs from a course.
type Course struct {
	Groups []CourseGroup
	Scale  []ScaleRow
}

// Item is one gradable item already resolved for a single student: Grade is the
// student's earned points (nil when ungraded) and Submitted reports whether any
// submission exists for the student.
type Item struct {
	ID          string
	Kind        ItemKind
	GroupName   string
	TotalPoints float64
	DueDate     *time.Time
	Published   bool
	Grade       *float64
	Submitted   bool
}

type itemStatus int

const (
	itemExcluded itemStatus = iota
	itemGraded
	itemMissed
	itemPending
)

func (i Item) status(now time.Time) itemStatus {
	if !i.Published {
		return itemExcluded
	}
	if i.Grade != nil && finite(*i.Grade) {
		return itemGraded
	}
	if i.Submitted {
		return itemPending
	}
	if i.DueDate != nil && i.DueDate.Before(now) {
		return itemMissed
	}
	return itemExcluded
}

// GroupResult is the rollup of one group for one student.
type GroupResult struct {
	Name           string  `json:"name"`
	Weight         float64 `json:"weight"`
	AdjustedWeight float64 `json:"adjusted_weight"`
	Earned         float64 `json:"earned"`
	Possible       float64 `json:"possible"`
	Percent        float64 `json:"percent"`
	HasGrade       bool    `json:"has_grade"`
	Countable      int     `json:"countable"`
	Pending        int     `json:"pending"`
}

// Summary is the weighted result of an aggregation policy.
type Summary struct {
	Policy  string
	Percent float64
	Groups  []GroupResult
	Other   GroupResult
}

// Policy names accepted by PolicyByName.
const (
	PolicyRedistribute = "redistribute"
	PolicyLegacy       = "legacy"
)

// Aggregator turns per-group rollups into a single weighted percentage.
type Aggregator interface {
	Name() string
	Aggregate(groups []CourseGroup, items []Item, now time.Time) Summary
}

// RedistributingPolicy gives the weight of groups without a grade to the groups
// that have one, in proportion to their own weight. The Other bucket, when graded,
// takes whatever is left of 100.
type RedistributingPolicy struct{}

// Name implements Aggregator.
func (RedistributingPolicy) Name() string { return PolicyRedistribute }

// Aggregate implements Aggregator.
func (p RedistributingPolicy) Aggregate(groups []CourseGroup, items []Item, now time.Time) Summary {
	named, other := rollup(groups, items, now)

	var total float64
	for _, group := range named {
		total += group.Weight
	}
	scale := 1.0
	if total > 100 {
		scale = safeRatio(100, total)
	}

	var gradedWeight, ungradedWeight float64
	graded := 0
	for _, group := range named {
		weight := group.Weight * scale
		if group.HasGrade {
			gradedWeight += weight
			graded++
			continue
		}
		ungradedWeight += weight
	}

	var allocated float64
	for i := range named {
		if !named[i].HasGrade {
			continue
		}
		weight := named[i].Weight * scale
		if other.HasGrade {
			named[i].AdjustedWeight = weight + share(ungradedWeight, weight, gradedWeight, graded)
		} else {
			named[i].AdjustedWeight = share(100, weight, gradedWeight, graded)
		}
		allocated += named[i].AdjustedWeight
	}

	if other.HasGrade {
		other.AdjustedWeight = 100 - allocated
		if other.AdjustedWeight < 0 || !finite(other.AdjustedWeight) {
			other.AdjustedWeight = 0
		}
	}

	return Summary{
		Policy:  p.Name(),
		Percent: weightedPercent(named, other),
		Groups:  named,
		Other:   other,
	}
}

// LegacyPolicy normalizes course weights to 100 and skips ungraded groups
// without redistributing their weight. The Other bucket, when graded, receives
// 100 minus the weight that actually contributed.
type LegacyPolicy struct{}

// Name implements Aggregator.
func (LegacyPolicy) Name() string { return PolicyLegacy }

// Aggregate implements Aggregator.
func (p LegacyPolicy) Aggregate(groups []CourseGroup, items []Item, now time.Time) Summary {
	named, other := rollup(groups, items, now)

	var total float64
	for _, group := range named {
		total += group.Weight
	}

	var contributing float64
	for i := range named {
		if !named[i].HasGrade {
			continue
		}
		named[i].AdjustedWeight = safeRatio(named[i].Weight*100, total)
		contributing += named[i].AdjustedWeight
	}

	if other.HasGrade {
		other.AdjustedWeight = 100 - contributing
		if other.AdjustedWeight < 0 || !finite(other.AdjustedWeight) {
			other.AdjustedWeight = 0
		}
	}

	return Summary{
		Policy:  p.Name(),
		Percent: weightedPercent(named, other),
		Groups:  named,
		Other:   other,
	}
}

// PolicyByName resolves a policy name, falling back to redistribution.
func PolicyByName(name string) Aggregator {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PolicyLegacy:
		return LegacyPolicy{}
	default:
		return RedistributingPolicy{}
	}
}

// CourseGrade is the on-demand course summary for one student.
type CourseGrade struct {
	StudentID string
	Policy    string
	Percent   float64
	Letter    string
	Groups    []GroupResult
	Other     GroupResult
}

// AggregateCourseGrade computes the weighted percentage and letter for a student.
func AggregateCourseGrade(policy Aggregator, studentID string, course Course, items []Item, now time.Time) CourseGrade {
	if policy == nil {
		policy = RedistributingPolicy{}
	}
	summary := policy.Aggregate(course.Groups, items, now)

	return CourseGrade{
		StudentID: studentID,
		Policy:    summary.Policy,
		Percent:   summary.Percent,
		Letter:    ResolveLetter(summary.Percent, course.Scale),
		Groups:    summary.Groups,
		Other:     summary.Other,
	}
}

func rollup(groups []CourseGroup, items []Item, now time.Time) ([]GroupResult, GroupResult) {
	named := make([]GroupResult, 0, len(groups))
	index := make(map[string]int, len(groups))
	for _, group := range groups {
		key := groupKey(group.Name)
		if _, duplicate := index[key]; duplicate || key == "" {
			continue
		}
		weight := group.Weight
		if !finite(weight) || weight < 0 {
			weight = 0
		}
		index[key] = len(named)
		named = append(named, GroupResult{Name: group.Name, Weight: weight})
	}

	other := GroupResult{Name: OtherGroup}
	for _, item := range items {
		target := &other
		if position, ok := index[groupKey(item.GroupName)]; ok {
			target = &named[position]
		}

		possible := item.TotalPoints
		if !finite(possible) || possible < 0 {
			possible = 0
		}

		switch item.status(now) {
		case itemGraded:
			target.Countable++
			target.Earned += *item.Grade
			target.Possible += possible
		case itemMissed:
			target.Countable++
			target.Possible += possible
		case itemPending:
			target.Pending++
		}
	}

	for i := range named {
		finishGroup(&named[i])
	}
	finishGroup(&other)

	return named, other
}

func finishGroup(group *GroupResult) {
	if group.Countable == 0 || group.Possible <= 0 {
		return
	}
	group.HasGrade = true
	group.Percent = safeRatio(group.Earned, group.Possible) * 100
}

func share(pool, weight, totalWeight float64, count int) float64 {
	if totalWeight > 0 {
		return safeRatio(pool*weight, totalWeight)
	}
	return safeRatio(pool, float64(count))
}

func weightedPercent(named []GroupResult, other GroupResult) float64 {
	var sum, weights float64
	for _, group := range named {
		if !group.HasGrade {
			continue
		}
		sum += group.Percent * group.AdjustedWeight
		weights += group.AdjustedWeight
	}
	if other.HasGrade {
		sum += other.Percent * other.AdjustedWeight
		weights += other.AdjustedWeight
	}
	return safeRatio(sum, weights)
}

func groupKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
