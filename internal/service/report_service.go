package service

import (
	"context"
	"fmt"
	"time"

	"bloh/internal/featureflags"
	"bloh/internal/models"
	"bloh/internal/policy"
	"bloh/internal/report"
	"bloh/internal/repository"
)

// ReportService builds the admin spreadsheet export.
type ReportService struct {
	posts repository.PostRepository
	flags *featureflags.Manager
	now   func() time.Time
}

// Export is a rendered workbook ready to be sent as an attachment.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

func NewReportService(posts repository.PostRepository, flags *featureflags.Manager) *ReportService {
	return &ReportService{posts: posts, flags: flags, now: time.Now}
}

// ExportPosts renders every post matching f. All filters combine with AND.
func (s *ReportService) ExportPosts(ctx context.Context, id policy.Identity, f report.Filter) (*Export, error) {
	if err := policy.AdminWrite.Check(id, policy.Write, 0); err != nil {
		return nil, err
	}
	if !s.flags.Enabled(featureflags.ReportExport, id.UserID) {
		return nil, models.NewForbiddenError("Report export is disabled")
	}

	rf := repository.ReportFilter{
		DateFrom: f.DateFrom,
		DateTo:   f.DateTo,
		AuthorID: f.AuthorID,
		TagIDs:   uniqueIDs(f.TagIDs),
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return nil, models.NewFieldValidationError("date_to", "date_to must not be before date_from")
	}
	for _, raw := range f.Statuses {
		st := models.PostStatus(raw)
		if !st.Valid() {
			return nil, models.NewFieldValidationError("status", fmt.Sprintf("Invalid status %q", raw))
		}
		rf.Statuses = append(rf.Statuses, st)
	}
	if f.PostType != "" {
		rf.PostType = models.PostType(f.PostType)
		if !rf.PostType.Valid() {
			return nil, models.NewFieldValidationError("post_type", "Invalid post_type")
		}
	}

	posts, err := s.posts.ForReport(ctx, rf)
	if err != nil {
		return nil, err
	}
	now := s.now()
	data, err := report.Posts(posts, f, now)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &Export{
		Filename:    fmt.Sprintf("posts-%s.xlsx", now.UTC().Format("20060102-150405")),
		ContentType: report.ContentType,
		Data:        data,
	}, nil
}
