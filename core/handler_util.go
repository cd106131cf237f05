package core

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// renderError sends the shared error page with the given status.
func renderError(c *gin.Context, status int, message string) {
	c.HTML(status, "error.html", gin.H{
		"Title":   strconv.Itoa(status),
		"Status":  status,
		"Message": message,
	})
}

// parsePagination applies defaults and bounds to page/per_page query values.
func parsePagination(pageRaw, perPageRaw string) (int, int) {
	page := 1
	if v, err := strconv.Atoi(pageRaw); err == nil && v > 0 {
		page = v
	}
	perPage := 50
	if v, err := strconv.Atoi(perPageRaw); err == nil && v > 0 && v <= 200 {
		perPage = v
	}
	return page, perPage
}
