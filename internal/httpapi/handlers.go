package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Aman-CERP/perfshop/internal/catalog"
	shoperrors "github.com/Aman-CERP/perfshop/internal/errors"
	"github.com/Aman-CERP/perfshop/internal/flags"
	"github.com/Aman-CERP/perfshop/internal/perf"
	"github.com/Aman-CERP/perfshop/internal/search"
	"github.com/Aman-CERP/perfshop/internal/worker"
	"github.com/Aman-CERP/perfshop/pkg/version"
)

type healthResponse struct {
	Status      string        `json:"status"`
	Version     string        `json:"version"`
	Products    int           `json:"products"`
	Worker      string        `json:"worker"`
	WorkerStats *worker.Stats `json:"workerStats,omitempty"`
	Searches    int64         `json:"searches"`
	Fallbacks   int64         `json:"fallbacks"`
}

func (s *Server) health(c echo.Context) error {
	resp := healthResponse{
		Status:   "ok",
		Version:  version.Version,
		Products: s.app.Catalog.Len(),
		Worker:   s.app.Breaker.State().String(),
	}
	resp.Searches, resp.Fallbacks = s.app.Dispatcher().Stats()
	if s.app.Worker != nil {
		stats := s.app.Worker.Stats()
		resp.WorkerStats = &stats
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) listProducts(c echo.Context) error {
	products := s.app.Catalog.Products()
	if category := c.QueryParam("category"); category != "" {
		filtered := make([]catalog.Product, 0, len(products))
		for _, p := range products {
			if strings.EqualFold(p.Category, category) {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}
	return c.JSON(http.StatusOK, map[string]any{
		"products":   products,
		"categories": s.app.Catalog.Categories(),
	})
}

func (s *Server) getProduct(c echo.Context) error {
	id := c.Param("id")
	p, ok := s.app.Catalog.Get(id)
	if !ok {
		return shoperrors.New(shoperrors.ErrCodeUnknownProduct, fmt.Sprintf("unknown product %q", id), nil)
	}
	return c.JSON(http.StatusOK, p)
}

// search runs the query and offers the outcome to the latest-wins feed.
func (s *Server) search(c echo.Context) error {
	ticket := s.latest.Begin()
	out, err := s.app.Search(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	s.latest.Publish(ticket, out)
	return c.JSON(http.StatusOK, out)
}

func (s *Server) latestSearch(c echo.Context) error {
	out, _ := s.latest.Current()
	if out == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, out)
}

type flagView struct {
	flags.Definition
	Enabled bool `json:"enabled"`
}

type flagsResponse struct {
	Flags     []flagView            `json:"flags"`
	Execution search.ExecutionFlags `json:"execution"`
}

func (s *Server) flagsResponse() flagsResponse {
	set := s.app.Flags.Snapshot()
	views := make([]flagView, 0, len(set))
	for _, d := range flags.Definitions() {
		views = append(views, flagView{Definition: d, Enabled: set[d.Key]})
	}
	return flagsResponse{Flags: views, Execution: flags.ExecutionFrom(set)}
}

func (s *Server) listFlags(c echo.Context) error {
	return c.JSON(http.StatusOK, s.flagsResponse())
}

// replaceFlags sets every flag at once; flags missing from the body are
// turned off.
func (s *Server) replaceFlags(c echo.Context) error {
	var values map[flags.Key]bool
	if err := json.NewDecoder(c.Request().Body).Decode(&values); err != nil {
		return shoperrors.ValidationError(`body must be {"<flag>": true|false, ...}`, err)
	}
	if err := s.app.Flags.Replace(values); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.flagsResponse())
}

type setFlagRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) setFlag(c echo.Context) error {
	var req setFlagRequest
	if err := c.Bind(&req); err != nil || req.Enabled == nil {
		return shoperrors.ValidationError(`body must be {"enabled": true|false}`, err)
	}
	if err := s.app.Flags.Set(flags.Key(c.Param("key")), *req.Enabled); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.flagsResponse())
}

func (s *Server) getCart(c echo.Context) error {
	return c.JSON(http.StatusOK, s.app.Cart.Snapshot())
}

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (s *Server) addCartItem(c echo.Context) error {
	var req cartItemRequest
	if err := c.Bind(&req); err != nil {
		return shoperrors.ValidationError("invalid cart item", err)
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	snap, err := s.app.Cart.Add(req.ProductID, req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, snap)
}

func (s *Server) updateCartItem(c echo.Context) error {
	var req cartItemRequest
	if err := c.Bind(&req); err != nil {
		return shoperrors.ValidationError("invalid cart item", err)
	}
	snap, err := s.app.Cart.SetQuantity(c.Param("id"), req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) removeCartItem(c echo.Context) error {
	snap, err := s.app.Cart.Remove(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, snap)
}

type budgetsResponse struct {
	Budgets     []perf.Budget `json:"budgets"`
	Report      perf.Report   `json:"report"`
	LongestTask *perf.Entry   `json:"longestTask,omitempty"`
}

func (s *Server) budgets(c echo.Context) error {
	resp := budgetsResponse{
		Budgets: perf.Budgets(),
		Report:  s.app.Report(),
	}
	if e, ok := s.app.Timeline.Longest(); ok {
		resp.LongestTask = &e
	}
	return c.JSON(http.StatusOK, resp)
}

type vitalsRequest struct {
	Samples []perf.Sample `json:"samples"`
}

func (s *Server) recordVitals(c echo.Context) error {
	var req vitalsRequest
	if err := c.Bind(&req); err != nil {
		return shoperrors.ValidationError("invalid vitals payload", err)
	}
	if len(req.Samples) == 0 {
		return shoperrors.ValidationError("no samples", nil)
	}
	if err := s.app.RecordVitals(req.Samples...); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]int{"accepted": len(req.Samples)})
}
