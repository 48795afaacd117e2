// Package handlers wires the registry API onto gin.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"homefleet/app/dto"
	"homefleet/app/services"
	"homefleet/app/utils"
)

// respondJSON sends a JSON response
func respondJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// respondError sends an error response
func respondError(c *gin.Context, status int, message string, details string) {
	c.JSON(status, dto.ErrorResponse{
		Error:   message,
		Details: details,
	})
}

// NodeHandler handles the node registry endpoints. tokenService may be nil
// when the central runs without auth.
type NodeHandler struct {
	nodes        *services.NodeService
	tokenService *services.TokenService
}

// NewNodeHandler creates a new node handler.
func NewNodeHandler(nodes *services.NodeService, tokenService *services.TokenService) *NodeHandler {
	return &NodeHandler{
		nodes:        nodes,
		tokenService: tokenService,
	}
}

// Register handles POST /api/v1/nodes/register/. A new node gets 201, a
// re-registration of a known id gets 200; both return the same body.
func (h *NodeHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	created, err := h.nodes.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to register node", "")
		return
	}

	resp := dto.RegisterResponse{NodeID: req.ID, Status: "registered"}
	if h.tokenService != nil {
		token, err := h.tokenService.GenerateToken(req.ID)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to generate token", "")
			return
		}
		resp.Token = token
		resp.ExpiresIn = int64(h.tokenService.Expiration().Seconds())
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(c, status, resp)
}

// Heartbeat handles POST /api/v1/nodes/:id/heartbeat/. Unknown ids get
// 404, which tells the agent to re-register.
func (h *NodeHandler) Heartbeat(c *gin.Context) {
	nodeID := c.Param("id")

	if !h.authorize(c, nodeID) {
		return
	}

	var req dto.HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	node, err := h.nodes.Heartbeat(c.Request.Context(), nodeID, &req)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to record heartbeat", "")
		return
	}
	if node == nil {
		respondError(c, http.StatusNotFound, "node not found", "")
		return
	}

	respondJSON(c, http.StatusOK, dto.HeartbeatResponse{OK: true, Status: string(node.Status)})
}

// PushMetrics handles POST /api/v1/nodes/:id/metrics/, the backfill path
// for samples buffered while the central was unreachable.
func (h *NodeHandler) PushMetrics(c *gin.Context) {
	nodeID := c.Param("id")

	if !h.authorize(c, nodeID) {
		return
	}

	var req dto.PushMetricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	accepted, found, err := h.nodes.BackfillMetrics(c.Request.Context(), nodeID, &req)
	if err != nil {
		if found {
			respondError(c, http.StatusBadRequest, "invalid samples", err.Error())
		} else {
			respondError(c, http.StatusInternalServerError, "failed to store samples", "")
		}
		return
	}
	if !found {
		respondError(c, http.StatusNotFound, "node not found", "")
		return
	}

	respondJSON(c, http.StatusOK, dto.PushMetricsResponse{Accepted: accepted})
}

// ListNodes handles GET /api/v1/nodes/.
func (h *NodeHandler) ListNodes(c *gin.Context) {
	nodes, err := h.nodes.ListNodes(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list nodes", "")
		return
	}
	respondJSON(c, http.StatusOK, dto.ListNodesResponse{Nodes: nodes, Count: len(nodes)})
}

// GetNode handles GET /api/v1/nodes/:id/.
func (h *NodeHandler) GetNode(c *gin.Context) {
	detail, err := h.nodes.GetNodeDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to get node", "")
		return
	}
	if detail == nil {
		respondError(c, http.StatusNotFound, "node not found", "")
		return
	}
	respondJSON(c, http.StatusOK, detail)
}

// authorize enforces the registration token on agent write paths when auth
// is enabled. The token must belong to the node named in the path.
func (h *NodeHandler) authorize(c *gin.Context, nodeID string) bool {
	if h.tokenService == nil {
		return true
	}

	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		respondError(c, http.StatusUnauthorized, "missing bearer token", "")
		return false
	}

	tokenNodeID, err := h.tokenService.ValidateToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		respondError(c, http.StatusUnauthorized, "invalid token", "")
		return false
	}
	if tokenNodeID != nodeID {
		respondError(c, http.StatusForbidden, "token does not match node", "")
		return false
	}
	return true
}
