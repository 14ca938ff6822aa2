package server

import (
	"fmt"
	"strings"
	"time"

	"bloh/internal/models"
	"bloh/internal/report"

	"github.com/gofiber/fiber/v2"
)

const reportDateLayout = "2006-01-02"

// reportFilter parses the export query string into a report.Filter.
func reportFilter(c *fiber.Ctx) (report.Filter, error) {
	var f report.Filter

	day := func(name string) (*time.Time, error) {
		raw := strings.TrimSpace(c.Query(name))
		if raw == "" {
			return nil, nil
		}
		t, err := time.ParseInLocation(reportDateLayout, raw, time.UTC)
		if err != nil {
			return nil, models.NewFieldValidationError(name, "Expected a date in YYYY-MM-DD format")
		}
		return &t, nil
	}

	var err error
	if f.DateFrom, err = day("date_from"); err != nil {
		return f, err
	}
	if f.DateTo, err = day("date_to"); err != nil {
		return f, err
	}

	for _, raw := range strings.Split(c.Query("status"), ",") {
		if st := strings.TrimSpace(raw); st != "" {
			f.Statuses = append(f.Statuses, st)
		}
	}
	f.PostType = strings.TrimSpace(c.Query("post_type"))

	if raw := strings.TrimSpace(c.Query("author_id")); raw != "" {
		ids, err := parseIDList(raw)
		if err != nil || len(ids) != 1 {
			return f, models.NewFieldValidationError("author_id", "A valid user id is required")
		}
		f.AuthorID = ids[0]
	}
	if f.TagIDs, err = parseIDList(c.Query("tags")); err != nil {
		return f, models.NewFieldValidationError("tags", err.Error())
	}
	return f, nil
}

// ExportPosts handles GET /api/reports/posts
func (s *Server) ExportPosts(c *fiber.Ctx) error {
	f, err := reportFilter(c)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	export, err := s.reportService.ExportPosts(c.UserContext(), identity(c), f)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	c.Set(fiber.HeaderContentType, export.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.Filename))
	return c.Send(export.Data)
}
