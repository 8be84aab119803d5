package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"skyrating/internal/constants"
	"skyrating/internal/domain"
	"skyrating/internal/storage"

	"github.com/rs/zerolog"
)

// HistoryService renders a user's rating log to HistoryDir/<id>.txt and, when an
// uploader is configured, copies it to object storage.
type HistoryService struct {
	dir      string
	uploader storage.Uploader
	logger   zerolog.Logger
}

func NewHistoryService(dir string, uploader storage.Uploader, logger zerolog.Logger) *HistoryService {
	return &HistoryService{dir: dir, uploader: uploader, logger: logger}
}

func Render(u *domain.User) string {
	var b strings.Builder
	name := u.Pilotname
	if name == "" {
		name = u.ID
	}
	fmt.Fprintf(&b, "Pilot: %s (%s)\n", name, u.ID)
	fmt.Fprintf(&b, "Elo: %.1f (max %.1f)\n", u.Elo, u.MaxElo)
	if u.Rank != nil {
		fmt.Fprintf(&b, "Rank: #%d\n", *u.Rank)
	} else {
		b.WriteString("Rank: unranked\n")
	}
	fmt.Fprintf(&b, "Kills: %d  Deaths: %d  Team kills: %d\n", u.Kills, u.Deaths, u.TeamKills)
	if u.IsBanned {
		b.WriteString("Status: banned\n")
	}
	b.WriteString("\n")
	for _, line := range u.History {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// Path returns the history file of userID, refusing ids that would land outside the history dir.
func (s *HistoryService) Path(userID string) (string, error) {
	if err := domain.ValidateUserID(userID); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, userID+".txt")
	if rel, err := filepath.Rel(s.dir, path); err != nil || rel != filepath.Base(path) {
		return "", fmt.Errorf("%w: %q resolves outside %s", domain.ErrInvalidUserID, userID, s.dir)
	}
	return path, nil
}

// Export writes the history file of u and returns its path.
func (s *HistoryService) Export(ctx context.Context, u *domain.User) (string, error) {
	path, err := s.Path(u.ID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create history dir: %w", err)
	}

	body := []byte(Render(u))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("failed to write history for %s: %w", u.ID, err)
	}

	if s.uploader != nil {
		uctx, cancel := context.WithTimeout(ctx, constants.UploadTimeout)
		defer cancel()
		if err := s.uploader.Upload(uctx, "histories/"+filepath.Base(path), body); err != nil {
			return path, err
		}
	}
	return path, nil
}

// ExportAll exports every user, logging failures and returning how many succeeded.
func (s *HistoryService) ExportAll(ctx context.Context, users []*domain.User) int {
	var ok int
	for _, u := range users {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.Export(ctx, u); err != nil {
			s.logger.Warn().Err(err).Str("user", u.ID).Msg("failed to export history")
			continue
		}
		ok++
	}
	return ok
}
