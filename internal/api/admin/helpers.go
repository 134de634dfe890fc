package admin

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// abortWith writes the package's uniform error body.
func abortWith(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// pageParams reads ?page and ?per_page with the admin defaults: page 1,
// 20 per page, hard cap of 100. Out-of-range values fall back to the
// defaults rather than erroring since these lists back internal tooling.
func pageParams(c *gin.Context) (page, perPage, offset int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage, (page - 1) * perPage
}
