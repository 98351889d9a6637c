package api

import (
	"github.com/denzelpenzel/battery-marketplace/internal/models"
	"github.com/denzelpenzel/battery-marketplace/internal/search"
	"github.com/denzelpenzel/battery-marketplace/internal/services"
	"github.com/valyala/fasthttp"
)

// defaultPageLimit applies to the browse views when no limit is given
const defaultPageLimit = 20

func (s *Server) createBatteryHandler(ctx *fasthttp.RequestCtx) {
	var req models.CreateBatteryRequest
	if err := s.parseJSONBody(ctx, &req); err != nil {
		s.sendError(ctx, err)
		return
	}

	battery, err := s.batteryService.CreateBattery(ctx, &req)
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	s.sendJSON(ctx, fasthttp.StatusCreated, battery)
}

func (s *Server) listBatteriesHandler(ctx *fasthttp.RequestCtx) {
	page, err := search.ParsePage(queryGetter(ctx), defaultPageLimit)
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	batteries, err := s.batteryService.ListBatteries(ctx, page)
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	s.sendJSON(ctx, fasthttp.StatusOK, batteries)
}

// getBatteryHandler accepts a numeric id or a listing reference
func (s *Server) getBatteryHandler(ctx *fasthttp.RequestCtx) {
	battery, err := s.batteryService.GetBattery(ctx, pathParam(ctx, "id"))
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	s.sendJSON(ctx, fasthttp.StatusOK, battery)
}

// updateBatteryHandler checks ownership before it looks at the body, so a
// non-owner is refused whatever the payload.
func (s *Server) updateBatteryHandler(ctx *fasthttp.RequestCtx) {
	id, err := pathID(ctx, "Battery not found")
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	battery, err := s.batteryService.LoadOwned(ctx, currentUserID(ctx), id)
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	var req models.UpdateBatteryRequest
	if err := s.parseJSONBody(ctx, &req); err != nil {
		s.sendError(ctx, err)
		return
	}

	updated, err := s.batteryService.UpdateBattery(ctx, battery, &req)
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	s.sendJSON(ctx, fasthttp.StatusOK, updated)
}

func (s *Server) deleteBatteryHandler(ctx *fasthttp.RequestCtx) {
	id, err := pathID(ctx, "Battery not found")
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	if err := s.batteryService.DeleteBattery(ctx, currentUserID(ctx), id); err != nil {
		s.sendError(ctx, err)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (s *Server) searchHandler(ctx *fasthttp.RequestCtx) {
	get := queryGetter(ctx)

	filter, err := search.ParseFilter(get)
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	page, err := search.ParsePage(get, 0)
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	batteries, err := s.batteryService.SearchBatteries(ctx, filter, page)
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	s.sendJSON(ctx, fasthttp.StatusOK, batteries)
}

func (s *Server) categoryHandler(ctx *fasthttp.RequestCtx) {
	page, err := search.ParsePage(queryGetter(ctx), defaultPageLimit)
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	batteries, err := s.batteryService.BatteriesByCategory(ctx, pathParam(ctx, "category"), page)
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	s.sendJSON(ctx, fasthttp.StatusOK, batteries)
}

func (s *Server) featuredHandler(ctx *fasthttp.RequestCtx) {
	page, err := search.ParsePage(queryGetter(ctx), services.DefaultFeaturedLimit)
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	batteries, err := s.batteryService.FeaturedBatteries(ctx, page.Limit)
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	s.sendJSON(ctx, fasthttp.StatusOK, batteries)
}

func (s *Server) userBatteriesHandler(ctx *fasthttp.RequestCtx) {
	id, err := pathID(ctx, "User not found")
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	page, err := search.ParsePage(queryGetter(ctx), 0)
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	batteries, err := s.batteryService.BatteriesByOwner(ctx, id, page)
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	s.sendJSON(ctx, fasthttp.StatusOK, batteries)
}
