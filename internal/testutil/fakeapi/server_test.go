package fakeapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func call(t *testing.T, s *Server, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(GuestHeader, "guest-1")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func TestCart_PricedServerSide(t *testing.T) {
	s := New("secret")
	s.AddProduct("p1", "Mug", "2.10")

	code, _ := call(t, s, http.MethodPost, "/cart/items/", map[string]interface{}{"product_id": "p1", "quantity": 3})
	assert.Equal(t, http.StatusCreated, code)

	code, env := call(t, s, http.MethodGet, "/cart/", nil)
	require.Equal(t, http.StatusOK, code)
	var cart struct {
		Total      string `json:"total"`
		ItemsCount int    `json:"items_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	assert.Equal(t, "6.30", cart.Total)
	assert.Equal(t, 3, cart.ItemsCount)
}

func TestAddresses_Paginated(t *testing.T) {
	s := New("secret")
	for _, city := range []string{"Leeds", "York", "Hull"} {
		s.SeedAddress("guest:guest-1", Address("Ada", city))
	}

	_, env := call(t, s, http.MethodGet, "/addresses/?page=2", nil)
	var page struct {
		Count    int            `json:"count"`
		Next     *string        `json:"next"`
		Previous *string        `json:"previous"`
		Results  []SavedAddress `json:"results"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 3, page.Count)
	assert.Nil(t, page.Next)
	require.NotNil(t, page.Previous)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Hull", page.Results[0].City)
}

func TestCheckout_RejectsForeignAddressAndEmptyCart(t *testing.T) {
	s := New("secret")
	s.AddProduct("p1", "Mug", "2.10")
	foreign := s.SeedAddress("guest:someone-else", Address("Bob", "Leeds"))
	own := s.SeedAddress("guest:guest-1", Address("Ada", "York"))

	code, env := call(t, s, http.MethodPost, "/orders/checkout/", map[string]interface{}{"address": strconv.Itoa(foreign), "payment_method": "cod"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Address not found", env.Error.Message)

	code, env = call(t, s, http.MethodPost, "/orders/checkout/", map[string]interface{}{"address": strconv.Itoa(own), "payment_method": "cod"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Your cart is empty", env.Error.Message)
}

func TestRetry_IssuesFreshSecretUntilPaid(t *testing.T) {
	s := New("secret")
	s.AddProduct("p1", "Mug", "2.10")
	own := s.SeedAddress("guest:guest-1", Address("Ada", "York"))
	call(t, s, http.MethodPost, "/cart/items/", map[string]interface{}{"product_id": "p1", "quantity": 1})

	code, env := call(t, s, http.MethodPost, "/orders/checkout/", map[string]interface{}{"address": strconv.Itoa(own), "payment_method": "card"})
	require.Equal(t, http.StatusCreated, code)
	var created struct {
		OrderNumber  string `json:"order_number"`
		ClientSecret string `json:"client_secret"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	_, env = call(t, s, http.MethodPost, "/payments/retry/", map[string]string{"order_number": created.OrderNumber})
	var retried struct {
		ClientSecret string `json:"client_secret"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &retried))
	assert.NotEqual(t, created.ClientSecret, retried.ClientSecret)

	s.SetPaymentStatus(created.OrderNumber, "Success")
	code, _ = call(t, s, http.MethodPost, "/payments/retry/", map[string]string{"order_number": created.OrderNumber})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = call(t, s, http.MethodGet, "/payments/verify/ORD-0/", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestFailNext(t *testing.T) {
	s := New("secret")
	s.FailNext("GET /cart/", 1)

	code, _ := call(t, s, http.MethodGet, "/cart/", nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	code, _ = call(t, s, http.MethodGet, "/cart/", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, s.Count("GET /cart/"))
}
