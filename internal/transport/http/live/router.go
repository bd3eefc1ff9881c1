package livehttp

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
)

// Router 暴露面板联动与测量相关的查询/注入接口。
type Router struct {
	service PaneService
}

// NewRouter 构造 live HTTP router。
func NewRouter(service PaneService) *Router {
	return &Router{service: service}
}

// Register 将 /api/live 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil || r.service == nil {
		return
	}
	group.GET("/panes", r.handleListPanes)
	group.GET("/panes/:id", r.handlePaneStatus)
	group.POST("/panes/:id/events", r.handlePaneEvent)
	group.GET("/panes/:id/measurement", r.handleMeasurement)
	group.GET("/panes/:id/snapshot.png", r.handleSnapshot)
	group.GET("/measurements", r.handleListMeasurements)
	group.GET("/source/stats", r.handleSourceStats)
}

func (r *Router) handleListPanes(c *gin.Context) {
	panes := r.service.ListPanes(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"panes": panes, "count": len(panes)})
}

func (r *Router) handlePaneStatus(c *gin.Context) {
	status, err := r.service.PaneStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		r.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// handlePaneEvent 把一次前端交互事件注入到面板上。载荷用 gjson 宽松解析，
// 数值字段接受字符串形式（部分前端会把坐标序列化成字符串）。
func (r *Router) handlePaneEvent(c *gin.Context) {
	id := c.Param("id")
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<16))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "读取请求体失败"})
		return
	}
	if !gjson.ValidBytes(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求体不是合法 JSON"})
		return
	}
	payload := gjson.ParseBytes(body)
	evType := strings.ToLower(strings.TrimSpace(payload.Get("type").String()))
	ctx := c.Request.Context()

	switch evType {
	case "hover":
		x, y, ok := extractPoint(payload)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "hover 事件需要 x/y 坐标"})
			return
		}
		if err := r.service.InjectHover(ctx, id, x, y); err != nil {
			r.renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case "hover_clear":
		if err := r.service.ClearHover(ctx, id); err != nil {
			r.renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case "range":
		from := payload.Get("from")
		to := payload.Get("to")
		if !from.Exists() || !to.Exists() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "range 事件需要 from/to 时间戳"})
			return
		}
		if err := r.service.InjectRange(ctx, id, from.Int(), to.Int()); err != nil {
			r.renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case "click":
		x, y, ok := extractPoint(payload)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "click 事件需要 x/y 坐标"})
			return
		}
		status, err := r.service.InjectClick(ctx, id, x, y)
		if err != nil {
			r.renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, status)
	case "measure_clear":
		if err := r.service.ClearMeasurement(ctx, id); err != nil {
			r.renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "未知事件类型: " + evType})
	}
}

func extractPoint(payload gjson.Result) (x, y float64, ok bool) {
	xv := payload.Get("x")
	yv := payload.Get("y")
	if !xv.Exists() || !yv.Exists() {
		return 0, 0, false
	}
	return xv.Float(), yv.Float(), true
}

func (r *Router) handleMeasurement(c *gin.Context) {
	status, err := r.service.Measurement(c.Request.Context(), c.Param("id"))
	if err != nil {
		r.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (r *Router) handleSnapshot(c *gin.Context) {
	img, err := r.service.SnapshotPNG(c.Request.Context(), c.Param("id"))
	if err != nil {
		r.renderError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", img.Bytes)
}

func (r *Router) handleListMeasurements(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	records, err := r.service.ListMeasurements(c.Request.Context(), strings.TrimSpace(c.Query("pane")), limit)
	if err != nil {
		r.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"measurements": records, "count": len(records)})
}

func (r *Router) handleSourceStats(c *gin.Context) {
	c.JSON(http.StatusOK, r.service.SourceStats(c.Request.Context()))
}

func (r *Router) renderError(c *gin.Context, err error) {
	if errors.Is(err, ErrPaneNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
