// Package fakeapi is an in-process stand-in for the storefront REST API. It
// prices carts, stores addresses, creates orders and issues payment handles
// the way the real service does, and lets tests script failures.
package fakeapi

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront/internal/shared/middleware"
	"storefront/internal/shared/response"
	"storefront/pkg/jwt"
)

const (
	GuestHeader = "X-Guest-Id"
	// PageSize of the address list, small so clients must paginate
	PageSize = 2
)

type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

type line struct {
	ID        int
	ProductID string
	Quantity  int
}

type cart struct {
	ID    int
	Lines []*line
}

type SavedAddress struct {
	ID       int    `json:"id"`
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required"`
	Line1    string `json:"address_line_1" binding:"required"`
	Line2    string `json:"address_line_2,omitempty"`
	City     string `json:"city" binding:"required"`
	Postcode string `json:"postcode" binding:"required"`
	Country  string `json:"country" binding:"required"`
}

type order struct {
	Number  string
	Shopper string
	Method  string
	Status  string
	Amount  decimal.Decimal
	Secrets []string
}

type user struct {
	ID       string
	Email    string
	Password string
}

// Server holds all fake API state behind one mutex.
type Server struct {
	mu sync.Mutex

	tokens  *jwt.Manager
	router  *gin.Engine
	nextID  int
	revoked map[string]bool

	products  map[string]Product
	users     map[string]user
	carts     map[string]*cart
	addresses map[string][]*SavedAddress
	orders    map[string]*order
	requests  []string

	// scripted behaviour
	omitCheckoutField string
	failures          map[string]int
}

func New(secret string) *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		tokens:    jwt.NewManager(secret, 15*time.Minute),
		revoked:   map[string]bool{},
		products:  map[string]Product{},
		users:     map[string]user{},
		carts:     map[string]*cart{},
		addresses: map[string][]*SavedAddress{},
		orders:    map[string]*order{},
		failures:  map[string]int{},
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logger(), s.record(), s.scriptedFailures())

	auth := r.Group("/auth")
	auth.POST("/token/", s.login)
	auth.POST("/token/refresh/", s.refresh)

	api := r.Group("/")
	api.Use(middleware.Identity(s.tokens, GuestHeader, s.isRevoked))
	{
		api.GET("/cart/", s.getCart)
		api.POST("/cart/items/", s.addItem)
		api.PATCH("/cart/items/:id/", s.updateItem)
		api.DELETE("/cart/items/:id/", s.removeItem)
		api.DELETE("/cart/clear/", s.clearCart)

		api.GET("/addresses/", s.listAddresses)
		api.POST("/addresses/", s.createAddress)

		api.POST("/orders/checkout/", s.checkout)

		api.GET("/payments/verify/:order/", s.verifyPayment)
		api.POST("/payments/retry/", s.retryPayment)
	}
	return r
}

// ========================================
// SCRIPTING
// ========================================

func (s *Server) AddProduct(id, name, price string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id] = Product{ID: id, Name: name, Price: decimal.RequireFromString(price)}
}

func (s *Server) AddUser(id, email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = user{ID: id, Email: email, Password: password}
}

// SeedAddress stores a saved address for shopper ("user:<id>" or
// "guest:<id>") and returns its id
func (s *Server) SeedAddress(shopper string, a SavedAddress) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	a.ID = s.nextID
	s.addresses[shopper] = append(s.addresses[shopper], &a)
	return a.ID
}

// Address builds a saved address fixture
func Address(fullName, city string) SavedAddress {
	return SavedAddress{
		FullName: fullName,
		Email:    "shopper@example.co.uk",
		Phone:    "07123456789",
		Line1:    "1 High Street",
		City:     city,
		Postcode: "LS1 1AA",
		Country:  "GB",
	}
}

// SetPaymentStatus sets the server status string of an order
func (s *Server) SetPaymentStatus(orderNumber, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[orderNumber]; ok {
		o.Status = status
	}
}

// OmitCheckoutField drops a field from the next checkout responses
func (s *Server) OmitCheckoutField(field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitCheckoutField = field
}

// FailNext makes the next n requests matching "METHOD /path/" fail with 500
func (s *Server) FailNext(route string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = n
}

// RevokeTokens makes every access token issued so far fail with 401
func (s *Server) RevokeTokens(tokens ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tokens {
		s.revoked[t] = true
	}
}

// Requests returns "METHOD /path" for every request received
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Count returns how many requests matched "METHOD /path"
func (s *Server) Count(route string) int {
	n := 0
	for _, r := range s.Requests() {
		if r == route {
			n++
		}
	}
	return n
}

// Order returns the server's view of an order
func (s *Server) Order(number string) (status string, secrets []string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[number]
	if !ok {
		return "", nil, false
	}
	return o.Status, append([]string(nil), o.Secrets...), true
}

func (s *Server) isRevoked(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked[token]
}

func (s *Server) record() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		s.requests = append(s.requests, c.Request.Method+" "+c.Request.URL.Path)
		s.mu.Unlock()
		c.Next()
	}
}

func (s *Server) scriptedFailures() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.Request.Method + " " + c.Request.URL.Path
		s.mu.Lock()
		n := s.failures[route]
		if n > 0 {
			s.failures[route] = n - 1
		}
		s.mu.Unlock()

		if n > 0 {
			response.InternalServerError(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

// ========================================
// AUTH
// ========================================

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	s.mu.Lock()
	u, ok := s.users[req.Email]
	s.mu.Unlock()
	if !ok || u.Password != req.Password {
		response.Unauthorized(c, "Invalid email or password")
		return
	}

	access, err := s.tokens.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		response.InternalServerError(c, "could not issue token")
		return
	}
	refresh, err := s.tokens.GenerateRefreshToken(u.ID)
	if err != nil {
		response.InternalServerError(c, "could not issue token")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"access": access, "refresh": refresh})
}

func (s *Server) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	claims, err := s.tokens.ValidateRefreshToken(req.Refresh)
	if err != nil {
		response.Unauthorized(c, "refresh token invalid")
		return
	}

	access, err := s.tokens.GenerateAccessToken(claims.UserID, claims.Email)
	if err != nil {
		response.InternalServerError(c, "could not issue token")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"access": access})
}

// ========================================
// CART
// ========================================

type addItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

func (s *Server) cartFor(shopper string) *cart {
	c, ok := s.carts[shopper]
	if !ok {
		s.nextID++
		c = &cart{ID: s.nextID}
		s.carts[shopper] = c
	}
	return c
}

// priced renders a cart the way the real API does: line totals and the
// cart total are computed here, never by the client
func (s *Server) priced(c *cart) gin.H {
	items := make([]gin.H, 0, len(c.Lines))
	total := decimal.Zero
	count := 0
	for _, l := range c.Lines {
		p := s.products[l.ProductID]
		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		total = total.Add(lineTotal)
		count += l.Quantity
		items = append(items, gin.H{
			"id":           l.ID,
			"product_id":   l.ProductID,
			"product_name": p.Name,
			"price":        p.Price.StringFixed(2),
			"quantity":     l.Quantity,
			"total_price":  lineTotal.StringFixed(2),
		})
	}
	return gin.H{
		"id":          c.ID,
		"items":       items,
		"total":       total.StringFixed(2),
		"items_count": count,
	}
}

func (s *Server) getCart(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	response.Success(c, http.StatusOK, s.priced(s.cartFor(c.GetString(middleware.ContextKeyShopper))))
}

func (s *Server) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[req.ProductID]; !ok {
		response.NotFound(c, "Product not found")
		return
	}

	crt := s.cartFor(c.GetString(middleware.ContextKeyShopper))
	for _, l := range crt.Lines {
		if l.ProductID == req.ProductID {
			l.Quantity += req.Quantity
			response.Success(c, http.StatusOK, nil)
			return
		}
	}
	s.nextID++
	crt.Lines = append(crt.Lines, &line{ID: s.nextID, ProductID: req.ProductID, Quantity: req.Quantity})
	response.Success(c, http.StatusCreated, nil)
}

func (s *Server) findLine(c *gin.Context) (*cart, int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.NotFound(c, "Cart item not found")
		return nil, 0, false
	}
	crt := s.cartFor(c.GetString(middleware.ContextKeyShopper))
	for i, l := range crt.Lines {
		if l.ID == id {
			return crt, i, true
		}
	}
	response.NotFound(c, "Cart item not found")
	return nil, 0, false
}

func (s *Server) updateItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	crt, i, ok := s.findLine(c)
	if !ok {
		return
	}
	crt.Lines[i].Quantity = req.Quantity
	response.Success(c, http.StatusOK, nil)
}

func (s *Server) removeItem(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	crt, i, ok := s.findLine(c)
	if !ok {
		return
	}
	crt.Lines = append(crt.Lines[:i], crt.Lines[i+1:]...)
	c.Status(http.StatusNoContent)
}

func (s *Server) clearCart(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cartFor(c.GetString(middleware.ContextKeyShopper)).Lines = nil
	c.Status(http.StatusNoContent)
}

// ========================================
// ADDRESSES
// ========================================

func (s *Server) listAddresses(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		response.BadRequest(c, "invalid page")
		return
	}

	s.mu.Lock()
	all := append([]*SavedAddress(nil), s.addresses[c.GetString(middleware.ContextKeyShopper)]...)
	s.mu.Unlock()
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	start := (page - 1) * PageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + PageSize
	if end > len(all) {
		end = len(all)
	}

	base := fmt.Sprintf("http://%s/addresses/", c.Request.Host)
	var next, previous *string
	if end < len(all) {
		u := fmt.Sprintf("%s?page=%d", base, page+1)
		next = &u
	}
	if page > 1 {
		u := base
		if page > 2 {
			u = fmt.Sprintf("%s?page=%d", base, page-1)
		}
		previous = &u
	}

	response.Success(c, http.StatusOK, gin.H{
		"count":    len(all),
		"next":     next,
		"previous": previous,
		"results":  all[start:end],
	})
}

func (s *Server) createAddress(c *gin.Context) {
	var req SavedAddress
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	id := s.SeedAddress(c.GetString(middleware.ContextKeyShopper), req)
	req.ID = id
	response.Success(c, http.StatusCreated, req)
}

// ========================================
// ORDERS AND PAYMENTS
// ========================================

type checkoutRequest struct {
	Address       string `json:"address" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required,oneof=cod card"`
}

type retryRequest struct {
	OrderNumber string `json:"order_number" binding:"required"`
}

func (s *Server) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	shopper := c.GetString(middleware.ContextKeyShopper)

	var addr *SavedAddress
	for _, a := range s.addresses[shopper] {
		if strconv.Itoa(a.ID) == req.Address {
			addr = a
		}
	}
	if addr == nil {
		response.BadRequest(c, "Address not found")
		return
	}

	crt := s.cartFor(shopper)
	if len(crt.Lines) == 0 {
		response.Conflict(c, "Your cart is empty")
		return
	}

	s.nextID++
	number := fmt.Sprintf("ORD-%d", 1000+s.nextID)
	total, _ := decimal.NewFromString(s.priced(crt)["total"].(string))
	o := &order{
		Number:  number,
		Shopper: shopper,
		Method:  req.PaymentMethod,
		Status:  "Pending",
		Amount:  total,
	}
	o.Secrets = append(o.Secrets, s.secret(o))
	s.orders[number] = o
	crt.Lines = nil

	body := gin.H{
		"order_number":  number,
		"client_secret": o.Secrets[0],
		"customer_details": gin.H{
			"full_name": addr.FullName,
			"email":     addr.Email,
			"phone":     addr.Phone,
		},
	}
	if s.omitCheckoutField != "" {
		delete(body, s.omitCheckoutField)
	}
	response.Success(c, http.StatusCreated, body)
}

// secret issues a client secret unique to the order and attempt
func (s *Server) secret(o *order) string {
	return fmt.Sprintf("cs_%s_%d", strings.ToLower(o.Number), len(o.Secrets)+1)
}

func (s *Server) verifyPayment(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[c.Param("order")]
	if !ok {
		response.NotFound(c, "Order not found")
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"order_number":   o.Number,
		"status":         o.Status,
		"payment_method": o.Method,
		"amount":         o.Amount.StringFixed(2),
		"currency":       "GBP",
	})
}

func (s *Server) retryPayment(c *gin.Context) {
	var req retryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[req.OrderNumber]
	if !ok {
		response.NotFound(c, "Order not found")
		return
	}
	if o.Status == "Success" {
		response.Conflict(c, "Order already paid")
		return
	}

	secret := s.secret(o)
	o.Secrets = append(o.Secrets, secret)
	o.Status = "Pending"
	response.Success(c, http.StatusOK, gin.H{"client_secret": secret})
}
