package http_api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/onchainradar/radar/internal/models"
)

// FollowRequest represents the JSON body of a follow request
type FollowRequest struct {
	FollowerFID      string  `json:"follower_fid" binding:"required"`
	FollowerAddress  string  `json:"follower_address"`
	TargetAddress    string  `json:"target_address" binding:"required"`
	TargetName       string  `json:"target_name"`
	ThresholdUSD     float64 `json:"threshold_usd" binding:"gte=0"`
	ThresholdTxCount int     `json:"threshold_tx_count" binding:"gte=0"`
	Channel          string  `json:"channel" binding:"omitempty,oneof=farcaster telegram email"`
}

// errorStatus maps application errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// poll runs one sweep. It is called by an external cron.
func (s *HTTPServer) poll(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.sweepTimeout)
	defer cancel()

	results, err := s.radar.Sweep(ctx)
	if err != nil {
		s.logger.Error("Sweep failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": results,
	})
}

// pollerHealth is the health check of the poller.
func (s *HTTPServer) pollerHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   "wallet-poller",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *HTTPServer) listWatches(c *gin.Context) {
	fid := c.Query("fid")
	if fid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Farcaster FID is required"})
		return
	}

	subs, err := s.radar.Subscriptions(c.Request.Context(), fid)
	if err != nil {
		s.logger.Error("Failed to fetch subscriptions", "error", err, "fid", fid)
		c.JSON(errorStatus(err), gin.H{"error": "Failed to fetch subscriptions"})
		return
	}
	if subs == nil {
		subs = []*models.Subscription{}
	}

	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}

func (s *HTTPServer) addWatch(c *gin.Context) {
	var req FollowRequest

	// Parse and validate JSON request body
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
		})
		return
	}

	sub, err := s.radar.Follow(c.Request.Context(), &models.Subscription{
		FollowerID:       req.FollowerFID,
		FollowerAddress:  req.FollowerAddress,
		TargetAddress:    req.TargetAddress,
		TargetName:       req.TargetName,
		ThresholdUSD:     req.ThresholdUSD,
		ThresholdTxCount: req.ThresholdTxCount,
		Channel:          models.ChannelName(req.Channel),
	})
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("Failed to create subscription", "error", err, "fid", req.FollowerFID)
			c.JSON(status, gin.H{"success": false, "error": "Failed to create subscription"})
			return
		}
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"subscription": sub,
	})
}

// removeWatch deactivates a subscription. The fid must be the subscription owner.
func (s *HTTPServer) removeWatch(c *gin.Context) {
	id := c.Query("id")
	fid := c.Query("fid")
	if id == "" || fid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Subscription ID and Farcaster FID are required"})
		return
	}

	if err := s.radar.Unfollow(c.Request.Context(), id, fid); err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("Failed to remove subscription", "error", err, "id", id)
		}
		c.JSON(status, gin.H{"success": false, "error": http.StatusText(status)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Subscription removed",
	})
}

func (s *HTTPServer) recentActivity(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address is required"})
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		var err error
		if limit, err = strconv.Atoi(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
			return
		}
	}

	activities, err := s.radar.RecentActivity(c.Request.Context(), address, limit)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("Failed to get activity", "error", err, "address", address)
			c.JSON(status, gin.H{"error": "failed to get activity"})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	if activities == nil {
		activities = []*models.Activity{}
	}

	c.JSON(http.StatusOK, gin.H{"activities": activities})
}

// retryNotifications redelivers failed notifications.
func (s *HTTPServer) retryNotifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.sweepTimeout)
	defer cancel()

	results, err := s.radar.ResendFailed(ctx, limit)
	if err != nil {
		s.logger.Error("Resend failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": results,
	})
}
