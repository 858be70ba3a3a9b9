package auth

import "github.com/gin-gonic/gin"

const (
	customerIDKey    = "customerID"
	customerEmailKey = "customerEmail"
)

// GetCustomerID returns the authenticated customer's ID or empty string.
func GetCustomerID(c *gin.Context) string {
	return c.GetString(customerIDKey)
}

func GetCustomerEmail(c *gin.Context) string {
	return c.GetString(customerEmailKey)
}
