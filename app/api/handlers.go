package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/press-comb/app/content"
	"github.com/lysyi3m/press-comb/app/database"
	"github.com/lysyi3m/press-comb/app/feed"
	"github.com/lysyi3m/press-comb/app/menu"
	"github.com/lysyi3m/press-comb/app/sources"
	"github.com/lysyi3m/press-comb/app/tasks"
)

const feedItemLimit = 20

func NewHandler(aggregator *content.Aggregator, menus MenuTreeBuilder, configCache *sources.ConfigCache,
	sourceRepo database.SourceStore, postRepo database.SourcePostStore,
	scheduler tasks.TaskSchedulerInterface, metrics http.Handler) *Handler {
	return &Handler{
		aggregator:  aggregator,
		menus:       menus,
		generator:   feed.NewGenerator(),
		configCache: configCache,
		sourceRepo:  sourceRepo,
		postRepo:    postRepo,
		scheduler:   scheduler,
		metrics:     metrics,
	}
}

func (h *Handler) GetItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item id"})
		return
	}

	opts := itemOptions(c)
	if queryBool(c, "single") {
		opts = append(opts, content.WithSingle())
	}
	if queryBool(c, "relations") {
		opts = append(opts, content.WithRelations())
	}

	var item *content.Item
	if queryBool(c, "fields") || queryBool(c, "field_objects") || queryBool(c, "relations") {
		item = h.aggregator.FetchItemWithFields(c.Request.Context(), id, opts...)
	} else {
		item = h.aggregator.FetchItem(c.Request.Context(), id, opts...)
	}

	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"found": false})
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *Handler) ListItems(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := itemOptions(c)

	var items []*content.Item
	var found bool
	if queryBool(c, "fields") || queryBool(c, "field_objects") {
		items, found = h.aggregator.FetchItemsWithFields(c.Request.Context(), filter, opts...)
	} else {
		items, found = h.aggregator.FetchItems(c.Request.Context(), filter, opts...)
	}

	if !found {
		c.JSON(http.StatusNotFound, gin.H{"found": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": len(items),
	})
}

func (h *Handler) GetMenu(c *gin.Context) {
	location := c.Param("location")

	var ids [3]int64
	for i, name := range []string{"parent", "active", "current"} {
		id, err := queryID(c, name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ids[i] = id
	}

	view := menu.View{CurrentItemID: ids[2]}
	if c.Query("category") != "" {
		categoryID, err := queryID(c, "category")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		view.CurrentCategoryID = categoryID
		view.IsCategory = true
	}

	tree, err := h.menus.GetMenuTree(c.Request.Context(), location, ids[0], ids[1], view)
	if err != nil {
		if errors.Is(err, menu.ErrStructural) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Menu error"})
		return
	}

	if tree == nil {
		c.JSON(http.StatusNotFound, gin.H{"found": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"location": location,
		"items":    tree,
	})
}

func (h *Handler) GetFeed(c *gin.Context) {
	postType := c.Param("type")
	if postType == "" || content.Slugify(postType) != postType {
		c.Status(http.StatusBadRequest)
		return
	}

	// The loop belongs to this request; the aggregator rewinds it after the query
	loop := content.NewLoop()
	items, _ := h.aggregator.WithResetter(loop).FetchItemsWithFields(c.Request.Context(),
		content.Filter{Type: postType, Limit: feedItemLimit}, content.WithMeta(content.MetaAll()))

	rss, err := h.generator.Run(h.channelFor(c, postType), loop, items)
	if err != nil {
		slog.Error("RSS generation error", "type", postType, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(items)))
	c.Header("X-Feed-Type", postType)

	c.String(http.StatusOK, rss)
}

// channelFor borrows channel metadata from the first source importing postType.
func (h *Handler) channelFor(c *gin.Context, postType string) feed.Channel {
	channel := feed.Channel{Type: postType}

	list, err := h.sourceRepo.ListSources(c.Request.Context())
	if err != nil {
		slog.Warn("Failed to list sources for feed channel", "type", postType, "error", err)
		return channel
	}

	for _, source := range list {
		if source.PostType == postType && source.Title != "" {
			channel.Title = source.Title
			channel.Link = source.Link
			channel.Description = source.Description
			channel.Language = source.Language
			break
		}
	}

	return channel
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if list, err := h.sourceRepo.ListSources(c.Request.Context()); err == nil {
		health["sources"] = len(list)
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetMetrics(c *gin.Context) {
	h.metrics.ServeHTTP(c.Writer, c.Request)
}

func (h *Handler) APIListSources(c *gin.Context) {
	names := h.configCache.Names()

	list := make([]map[string]interface{}, 0, len(names))

	for _, name := range names {
		sourceConfig, err := h.configCache.GetConfig(name)
		if err != nil {
			continue
		}

		sourceInfo := map[string]interface{}{
			"name":             sourceConfig.Name,
			"url":              sourceConfig.URL,
			"post_type":        sourceConfig.PostType,
			"title":            "",
			"enabled":          sourceConfig.Settings.Enabled,
			"max_items":        sourceConfig.Settings.MaxItems,
			"refresh_interval": (time.Duration(sourceConfig.Settings.RefreshInterval) * time.Second).String(),
			"filters":          len(sourceConfig.Filters),
		}

		if source, err := h.sourceRepo.GetSource(c.Request.Context(), name); err == nil && source != nil {
			sourceInfo["title"] = source.Title
			sourceInfo["last_fetched_at"] = source.LastFetchedAt
			sourceInfo["next_fetch_at"] = source.NextFetchAt
			sourceInfo["updated_at"] = source.UpdatedAt
		}

		if stats, err := h.postRepo.GetSourceStats(c.Request.Context(), name); err == nil {
			sourceInfo["post_count"] = stats.Visible
		}

		list = append(list, sourceInfo)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": list,
		"total":   len(list),
	})
}

func (h *Handler) APIGetSourceDetails(c *gin.Context) {
	name := c.Param("name")

	sourceConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	source, err := h.sourceRepo.GetSource(c.Request.Context(), name)
	if err != nil {
		slog.Error("Database error", "operation", "get_source", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if source == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found in database"})
		return
	}

	details := map[string]interface{}{
		"name":             name,
		"url":              sourceConfig.URL,
		"post_type":        sourceConfig.PostType,
		"title":            source.Title,
		"enabled":          sourceConfig.Settings.Enabled,
		"max_items":        sourceConfig.Settings.MaxItems,
		"refresh_interval": (time.Duration(sourceConfig.Settings.RefreshInterval) * time.Second).String(),
		"timeout":          (time.Duration(sourceConfig.Settings.Timeout) * time.Second).String(),
		"extract_content":  sourceConfig.Settings.ExtractContent,
		"filters":          sourceConfig.Filters,
	}

	details["database"] = map[string]interface{}{
		"id":              source.ID,
		"name":            source.Name,
		"last_fetched_at": source.LastFetchedAt,
		"next_fetch_at":   source.NextFetchAt,
		"created_at":      source.CreatedAt,
		"updated_at":      source.UpdatedAt,
	}

	if stats, err := h.postRepo.GetSourceStats(c.Request.Context(), name); err == nil {
		details["posts"] = map[string]interface{}{
			"total":    stats.Total,
			"visible":  stats.Visible,
			"filtered": stats.Filtered,
		}
	}

	c.JSON(http.StatusOK, details)
}

func (h *Handler) APIReloadSource(c *gin.Context) {
	name := c.Param("name")

	if _, err := h.configCache.GetConfig(name); err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	if err := h.scheduler.ReloadSource(name); err != nil {
		slog.Error("Error reloading source", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reload source",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Configuration reloaded and tasks enqueued successfully",
		"source":  name,
	})
}
