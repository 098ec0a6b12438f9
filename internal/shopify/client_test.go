// internal/shopify/client_test.go
package shopify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextPageURL(t *testing.T) {
	header := `<https://shop.myshopify.com/admin/api/2023-07/orders.json?limit=250&page_info=abc>; rel="next"`
	assert.Equal(t,
		"https://shop.myshopify.com/admin/api/2023-07/orders.json?limit=250&page_info=abc",
		nextPageURL(header))

	both := `<https://shop.myshopify.com/a?page_info=prev>; rel="previous", <https://shop.myshopify.com/a?page_info=next>; rel="next"`
	assert.Equal(t, "https://shop.myshopify.com/a?page_info=next", nextPageURL(both))

	assert.Equal(t, "", nextPageURL(`<https://shop.myshopify.com/a?page_info=prev>; rel="previous"`))
	assert.Equal(t, "", nextPageURL(""))
}
