package documents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/questai/mongodb-tools-api/internal/auth"
	"github.com/questai/mongodb-tools-api/internal/constant"
	"github.com/questai/mongodb-tools-api/internal/handlers"
	"github.com/questai/mongodb-tools-api/internal/logger"
)

const projectParam = "mongo_project"

type Handler struct {
	service *Service
	logger  *logger.Logger
}

func NewHandler(log *logger.Logger, service *Service) *Handler {
	if log == nil {
		log = logger.Production()
	}
	return &Handler{
		service: service,
		logger:  log,
	}
}

// RegisterRoutes mounts the document routes on an authenticated, subscription-gated group.
func (h *Handler) RegisterRoutes(group gin.IRoutes) {
	group.GET("/databases", h.ListDatabases)
	group.GET("/databases/:db/collections", h.ListCollections)
	group.POST("/databases/:db/collections/:coll/documents/insert", h.InsertDocuments)
	group.POST("/databases/:db/collections/:coll/documents/find", h.QueryDocuments)
	group.PATCH("/databases/:db/collections/:coll/documents", h.UpdateDocuments)
	group.DELETE("/databases/:db/collections/:coll/documents", h.DeleteDocuments)
}

// ListDatabases handles GET /databases.
func (h *Handler) ListDatabases(c *gin.Context) {
	token, project, ok := h.requestScope(c)
	if !ok {
		return
	}

	names, err := h.service.ListDatabases(c.Request.Context(), token, project)
	if err != nil {
		h.fail(c, "list_databases", "query", err)
		return
	}

	c.JSON(http.StatusOK, names)
}

// ListCollections handles GET /databases/:db/collections.
func (h *Handler) ListCollections(c *gin.Context) {
	token, project, ok := h.requestScope(c)
	if !ok {
		return
	}

	names, err := h.service.ListCollections(c.Request.Context(), token, project, c.Param("db"))
	if err != nil {
		h.fail(c, "list_collections", "query", err)
		return
	}

	c.JSON(http.StatusOK, names)
}

// InsertDocuments handles POST /databases/:db/collections/:coll/documents/insert.
func (h *Handler) InsertDocuments(c *gin.Context) {
	token, project, ok := h.requestScope(c)
	if !ok {
		return
	}

	var req InsertRequest
	if !bindBody(c, &req) {
		return
	}

	resp, err := h.service.Insert(c.Request.Context(), token, project, c.Param("db"), c.Param("coll"), req)
	if err != nil {
		h.fail(c, "insert_documents", "insert", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// QueryDocuments handles POST /databases/:db/collections/:coll/documents/find.
func (h *Handler) QueryDocuments(c *gin.Context) {
	token, project, ok := h.requestScope(c)
	if !ok {
		return
	}

	var req FindRequest
	if !bindBody(c, &req) {
		return
	}

	docs, err := h.service.Find(c.Request.Context(), token, project, c.Param("db"), c.Param("coll"), req)
	if err != nil {
		h.fail(c, "query_documents", "query", err)
		return
	}

	c.JSON(http.StatusOK, docs)
}

// UpdateDocuments handles PATCH /databases/:db/collections/:coll/documents.
func (h *Handler) UpdateDocuments(c *gin.Context) {
	token, project, ok := h.requestScope(c)
	if !ok {
		return
	}

	var req UpdateRequest
	if !bindBody(c, &req) {
		return
	}

	resp, err := h.service.Update(c.Request.Context(), token, project, c.Param("db"), c.Param("coll"), req)
	if err != nil {
		h.fail(c, "update_documents", "update", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteDocuments handles DELETE /databases/:db/collections/:coll/documents.
func (h *Handler) DeleteDocuments(c *gin.Context) {
	token, project, ok := h.requestScope(c)
	if !ok {
		return
	}

	var req DeleteRequest
	if !bindBody(c, &req) {
		return
	}

	resp, err := h.service.Delete(c.Request.Context(), token, project, c.Param("db"), c.Param("coll"), req)
	if err != nil {
		h.fail(c, "delete_documents", "delete", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// requestScope returns the caller's raw token and the mongo_project query parameter.
func (h *Handler) requestScope(c *gin.Context) (string, string, bool) {
	data, ok := auth.TokenFromContext(c)
	if !ok {
		handlers.Abort(c, http.StatusUnauthorized, handlers.CodeUnauthorized, "Could not validate credentials")
		return "", "", false
	}

	project := c.Query(projectParam)
	if project == "" {
		handlers.Abort(c, http.StatusBadRequest, handlers.CodeBadRequest, projectParam+" query parameter is required")
		return "", "", false
	}

	return data.AccessToken, project, true
}

func (h *Handler) fail(c *gin.Context, operation, verb string, err error) {
	_ = c.Error(err)
	h.logger.WithFields("request_id", c.GetString(constant.ContextKeyRequestID)).WithError(err).Error("Document operation failed",
		"operation", operation,
		"project", c.Query(projectParam),
		"database", c.Param("db"),
		"collection", c.Param("coll"),
	)
	handlers.Abort(c, http.StatusInternalServerError, handlers.CodeInternalError,
		fmt.Sprintf("Could not %s documents: %v", verb, err))
}

// bindBody decodes an optional JSON body, keeping integers as integers, and validates it.
// An empty body leaves every field at its default.
func bindBody(c *gin.Context, obj any) bool {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		handlers.Abort(c, http.StatusBadRequest, handlers.CodeBadRequest, "failed to read request body: "+err.Error())
		return false
	}

	if len(bytes.TrimSpace(body)) > 0 {
		decoder := json.NewDecoder(bytes.NewReader(body))
		decoder.UseNumber()
		if err := decoder.Decode(obj); err != nil {
			handlers.Abort(c, http.StatusBadRequest, handlers.CodeBadRequest, "invalid request body: "+err.Error())
			return false
		}
	}

	if err := binding.Validator.ValidateStruct(obj); err != nil {
		handlers.Abort(c, http.StatusBadRequest, handlers.CodeBadRequest, "invalid request body: "+err.Error())
		return false
	}

	return true
}
