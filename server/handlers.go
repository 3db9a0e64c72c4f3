package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jonwraymond/brgateway/gateway"
)

func (s *Server) lookupCNPJ(c *gin.Context) {
	res, err := s.gw.LookupCNPJ(c.Request.Context(), c.Param("id"))
	s.respond(c, res, err)
}

func (s *Server) lookupCEP(c *gin.Context) {
	res, err := s.gw.LookupCEP(c.Request.Context(), c.Param("id"))
	s.respond(c, res, err)
}

func (s *Server) search(c *gin.Context) {
	maxResults, ok := intQuery(c, "max_results")
	if !ok {
		return
	}
	res, err := s.gw.Search(c.Request.Context(), c.Query("q"), maxResults)
	s.respond(c, res, err)
}

func (s *Server) intelligence(c *gin.Context) {
	maxQueries, ok := intQuery(c, "max_queries")
	if !ok {
		return
	}
	opts := gateway.IntelligenceOptions{MaxQueries: maxQueries}
	if raw := c.Query("categories"); raw != "" {
		for _, cat := range strings.Split(raw, ",") {
			if cat = strings.TrimSpace(cat); cat != "" {
				opts.Categories = append(opts.Categories, cat)
			}
		}
	}

	report, err := s.gw.Intelligence(c.Request.Context(), c.Param("cnpj"), opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) respond(c *gin.Context, res *gateway.Result, err error) {
	if err != nil {
		s.fail(c, err)
		return
	}
	if res.Cached {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.JSON(http.StatusOK, res)
}

// intQuery reads an optional non-negative integer query parameter, writing a
// 400 when it is malformed.
func intQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		abort(c, http.StatusBadRequest, "invalid_parameter", name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}
