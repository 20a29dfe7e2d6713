package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/material-submission-api/internal/middleware"
	"github.com/noah-isme/material-submission-api/internal/models"
	appErrors "github.com/noah-isme/material-submission-api/pkg/errors"
)

// requestMeta identifies the caller of a mutating request for audit columns and logs.
func requestMeta(c *gin.Context) models.RequestMeta {
	meta := models.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
	if claims := middleware.Claims(c); claims != nil {
		meta.ActorID = strconv.FormatInt(claims.UserID, 10)
	}
	return meta
}

func invalidParam(name string) error {
	return appErrors.Clone(appErrors.ErrValidation, "invalid "+name)
}

func bindError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidParam("id")
	}
	return id, nil
}

// queryParser collects query parameters and remembers the first malformed one.
type queryParser struct {
	c   *gin.Context
	err error
}

func newQueryParser(c *gin.Context) *queryParser {
	return &queryParser{c: c}
}

func (p *queryParser) fail(name string) {
	if p.err == nil {
		p.err = invalidParam(name)
	}
}

func (p *queryParser) raw(name string) (string, bool) {
	value := strings.TrimSpace(p.c.Query(name))
	return value, value != ""
}

func (p *queryParser) Int64(name string) *int64 {
	value, ok := p.raw(name)
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		p.fail(name)
		return nil
	}
	return &n
}

func (p *queryParser) Int(name string) *int {
	value, ok := p.raw(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		p.fail(name)
		return nil
	}
	return &n
}

func (p *queryParser) Bool(name string) *bool {
	value, ok := p.raw(name)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		p.fail(name)
		return nil
	}
	return &b
}

func (p *queryParser) Date(name string) *models.Date {
	value, ok := p.raw(name)
	if !ok {
		return nil
	}
	d, err := models.ParseDate(value)
	if err != nil {
		p.fail(name)
		return nil
	}
	return &d
}

// IDs reads a comma separated list such as stageIds=1,2,3.
func (p *queryParser) IDs(name string) []int64 {
	value, ok := p.raw(name)
	if !ok {
		return nil
	}
	parts := strings.Split(value, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			p.fail(name)
			return nil
		}
		ids = append(ids, id)
	}
	return ids
}

// Page reads page and limit, falling back to the defaults on garbage like the listing screens expect.
func (p *queryParser) Page() (int, int) {
	page, size := 1, 20
	if v, err := strconv.Atoi(p.c.DefaultQuery("page", "1")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(p.c.DefaultQuery("limit", "20")); err == nil {
		size = v
	}
	return page, size
}

// Sort accepts either sort=-field or sort=field&order=desc.
func (p *queryParser) Sort() (string, string) {
	field := strings.TrimSpace(p.c.Query("sort"))
	order := strings.ToLower(strings.TrimSpace(p.c.Query("order")))
	if strings.HasPrefix(field, "-") {
		return strings.TrimPrefix(field, "-"), "desc"
	}
	return field, order
}

func (p *queryParser) Err() error {
	return p.err
}
