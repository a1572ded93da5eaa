package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ChapterQuestionsKey returns the cache key for a chapter's question payload.
// The cached payload never contains correctness data.
func (r *CacheKeyStruct) ChapterQuestionsKey(chapterID string) string {
	return fmt.Sprintf("chapter:%s:questions", chapterID)
}

// SubjectsKey returns the cache key for the subject catalog.
func (r *CacheKeyStruct) SubjectsKey() string {
	return "catalog:subjects"
}

// SubjectChaptersKey returns the cache key for a subject's chapter list.
func (r *CacheKeyStruct) SubjectChaptersKey(subjectID string) string {
	return fmt.Sprintf("catalog:subject:%s:chapters", subjectID)
}

// UserActiveSessionKey returns the cache key for a user's currently active
// quiz session ID.
func (r *CacheKeyStruct) UserActiveSessionKey(userID string) string {
	return fmt.Sprintf("user:%s:active_session", userID)
}

var CacheKey = NewCacheKeyStruct()
