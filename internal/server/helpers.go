package server

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"bloh/internal/media"
	"bloh/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// mapServiceError picks the HTTP status for an error returned by the service layer.
func mapServiceError(err error) int {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.StatusNotFound
	}
	switch models.ErrorCode(err) {
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "commentId" -> "comment ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	return append(words, s[start:])
}

// queryInt parses an optional integer query parameter. Absent or empty values
// yield nil; anything unparsable writes a 400 naming the parameter.
func queryInt(c *fiber.Ctx, name string) (*int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewFieldValidationError(name, "A valid integer is required"))
		return nil, errResponseWritten
	}
	return &v, nil
}

// queryPage reads page and page_size; zero means "use the default".
func queryPage(c *fiber.Ctx) (int, int, error) {
	page, err := queryInt(c, "page")
	if err != nil {
		return 0, 0, err
	}
	size, err := queryInt(c, "page_size")
	if err != nil {
		return 0, 0, err
	}
	var p, ps int
	if page != nil {
		p = *page
	}
	if size != nil {
		ps = *size
	}
	return p, ps, nil
}

// isMultipart reports whether the request body is a multipart form.
func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm)
}

// formUpload reads the file part named field. A missing part yields nil.
func (s *Server) formUpload(c *fiber.Ctx, field string) (*media.Upload, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewFieldValidationError(field, "Invalid multipart upload")
	}
	return s.readUpload(field, fh)
}

// readUpload loads a file part after checking its declared size. Reads stop one
// byte past the ceiling in case the header understates the part.
func (s *Server) readUpload(field string, fh *multipart.FileHeader) (*media.Upload, error) {
	if err := s.uploads.CheckSize(field, fh.Size); err != nil {
		return nil, err
	}
	src, err := fh.Open()
	if err != nil {
		return nil, models.NewValidationError("Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	var r io.Reader = src
	if s.uploads.MaxBytes > 0 {
		r = io.LimitReader(src, s.uploads.MaxBytes+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, models.NewValidationError("Unable to read uploaded file")
	}
	return &media.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        content,
	}, nil
}

// formBool accepts the usual truthy spellings of a form value.
func formBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
