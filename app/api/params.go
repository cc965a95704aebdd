package api

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/press-comb/app/content"
)

func queryBool(c *gin.Context, name string) bool {
	v, err := strconv.ParseBool(c.Query(name))
	return err == nil && v
}

// queryID reads an optional non-negative id. Missing means 0.
func queryID(c *gin.Context, name string) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return id, nil
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return n, nil
}

// itemOptions maps the decoration parameters shared by single and collection fetches.
func itemOptions(c *gin.Context) []content.Option {
	opts := []content.Option{
		content.WithMeta(content.ParseMetaSelector(c.Query("meta"))),
	}
	if ns := c.Query("namespace"); ns != "" {
		opts = append(opts, content.WithNamespace(ns))
	}
	if queryBool(c, "field_objects") {
		opts = append(opts, content.WithFieldObjects())
	}
	return opts
}

func parseFilter(c *gin.Context) (content.Filter, error) {
	filter := content.Filter{
		Type:      c.Query("type"),
		Status:    c.Query("status"),
		Search:    c.Query("search"),
		MetaKey:   c.Query("meta_key"),
		MetaValue: c.Query("meta_value"),
		OrderBy:   c.Query("orderby"),
		Order:     c.Query("order"),
	}

	var err error
	if filter.AuthorID, err = queryID(c, "author"); err != nil {
		return filter, err
	}
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		return filter, err
	}

	if c.Query("parent") != "" {
		parentID, err := queryID(c, "parent")
		if err != nil {
			return filter, err
		}
		filter.ParentID = &parentID
	}

	return filter, nil
}
