//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"testing"
)

type productResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Price         string `json:"price"`
	StockQuantity int    `json:"stock_quantity"`
	CategoryID    string `json:"category_id"`
}

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// seededProducts fetches the catalog and indexes it by name.
func seededProducts(t *testing.T) map[string]productResponse {
	t.Helper()

	resp := doGet(t, "/api/products", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	byName := make(map[string]productResponse, len(products))
	for _, p := range products {
		byName[p.Name] = p
	}
	return byName
}

func TestListProducts(t *testing.T) {
	products := seededProducts(t)

	if len(products) != 9 {
		t.Fatalf("expected 9 seeded products, got %d", len(products))
	}

	headphones, ok := products["Wireless Headphones"]
	if !ok {
		t.Fatal("Wireless Headphones not in catalog")
	}
	if headphones.Price != "89.99" {
		t.Errorf("price: got %q, want %q", headphones.Price, "89.99")
	}
	if headphones.StockQuantity <= 0 {
		t.Errorf("stock: got %d, want > 0", headphones.StockQuantity)
	}
	if !uuidPattern.MatchString(headphones.ID) {
		t.Errorf("product id %q is not a valid UUID", headphones.ID)
	}
}

func TestGetProduct(t *testing.T) {
	products := seededProducts(t)
	cable := products["USB-C Cable"]

	resp := doGet(t, "/api/products/"+cable.ID, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	got := decodeJSON[productResponse](t, resp)
	if got.Name != "USB-C Cable" {
		t.Errorf("name: got %q, want %q", got.Name, "USB-C Cable")
	}
}

func TestGetProduct_Unknown(t *testing.T) {
	resp := doGet(t, "/api/products/00000000-0000-0000-0000-000000000000", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
