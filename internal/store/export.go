package store

import (
	"context"
	"fmt"
	"time"

	"github.com/viditforsv/quizplayer/internal/model"
)

// ExportAllSessions builds the export document from every journaled
// play-through and, when withAttempts is set, the attempt log. The export
// time is remembered in the metadata table.
func (s *Store) ExportAllSessions(ctx context.Context, quizID string, withAttempts bool) (model.SessionExport, error) {
	sessions, err := s.ListSessions(ctx, quizID)
	if err != nil {
		return model.SessionExport{}, fmt.Errorf("list sessions: %w", err)
	}

	for i := range sessions {
		answers, err := s.GetAnswers(ctx, sessions[i].SessionID)
		if err != nil {
			return model.SessionExport{}, fmt.Errorf("get answers %s: %w", sessions[i].SessionID, err)
		}
		sessions[i].Answers = answers
	}

	now := time.Now().UTC()
	exp := model.SessionExport{
		ExportedAt:  now.Format(time.RFC3339),
		NumSessions: len(sessions),
		Sessions:    sessions,
	}
	if exp.Sessions == nil {
		exp.Sessions = []model.SessionRecord{}
	}

	if withAttempts {
		if quizID == "" {
			exp.Attempts, err = s.ListAttempts(ctx, "")
			if err != nil {
				return model.SessionExport{}, fmt.Errorf("list attempts: %w", err)
			}
		} else {
			for _, sess := range sessions {
				logs, err := s.ListAttempts(ctx, sess.SessionID)
				if err != nil {
					return model.SessionExport{}, fmt.Errorf("list attempts %s: %w", sess.SessionID, err)
				}
				exp.Attempts = append(exp.Attempts, logs...)
			}
		}
	}

	if err := s.SetMetadata(ctx, metaLastExport, exp.ExportedAt); err != nil {
		return model.SessionExport{}, fmt.Errorf("record export time: %w", err)
	}
	return exp, nil
}
