package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-gradebook/internal/dto"
	"github.com/noah-isme/gema-gradebook/internal/grading"
)

// CourseGradeCache stores computed course grades in Redis. A nil cache or a
// cache without a client is a no-op.
type CourseGradeCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCourseGradeCache wraps a Redis client.
func NewCourseGradeCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *CourseGradeCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CourseGradeCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "course_grade_cache").Logger(),
	}
}

func (c *CourseGradeCache) enabled() bool {
	return c != nil && c.client != nil
}

func courseGradeKey(courseID, studentID uint, policy string) string {
	return fmt.Sprintf("gradebook:course:%d:student:%d:%s", courseID, studentID, policy)
}

// Get returns a cached course grade when present.
func (c *CourseGradeCache) Get(ctx context.Context, courseID, studentID uint, policy string) (dto.CourseGradeResponse, bool) {
	if !c.enabled() {
		return dto.CourseGradeResponse{}, false
	}

	cached, err := c.client.Get(ctx, courseGradeKey(courseID, studentID, policy)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Msg("failed to read course grade cache")
		}
		return dto.CourseGradeResponse{}, false
	}

	var response dto.CourseGradeResponse
	if err := json.Unmarshal([]byte(cached), &response); err != nil {
		c.logger.Warn().Err(err).Msg("discarding malformed course grade cache entry")
		return dto.CourseGradeResponse{}, false
	}
	return response, true
}

// Set stores a computed course grade.
func (c *CourseGradeCache) Set(ctx context.Context, response dto.CourseGradeResponse) {
	if !c.enabled() {
		return
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return
	}
	key := courseGradeKey(response.CourseID, response.StudentID, response.Policy)
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to store course grade cache")
	}
}

// InvalidateStudents drops the cached grades of the given students in a course
// under every aggregation policy.
func (c *CourseGradeCache) InvalidateStudents(ctx context.Context, courseID uint, studentIDs ...uint) {
	if !c.enabled() || len(studentIDs) == 0 {
		return
	}

	policies := []string{grading.PolicyRedistribute, grading.PolicyLegacy}
	keys := make([]string, 0, len(studentIDs)*len(policies))
	for _, studentID := range studentIDs {
		for _, policy := range policies {
			keys = append(keys, courseGradeKey(courseID, studentID, policy))
		}
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Uint("course_id", courseID).Msg("failed to invalidate course grade cache")
	}
}

// InvalidateCourse drops every cached grade of a course.
func (c *CourseGradeCache) InvalidateCourse(ctx context.Context, courseID uint) {
	if !c.enabled() {
		return
	}

	pattern := fmt.Sprintf("gradebook:course:%d:student:*", courseID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn().Err(err).Uint("course_id", courseID).Msg("failed to scan course grade cache")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Uint("course_id", courseID).Msg("failed to invalidate course grade cache")
	}
}
