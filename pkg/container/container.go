package container

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/config"
	infraCache "storefront/internal/infrastructure/cache"
	"storefront/internal/infrastructure/api"
	"storefront/internal/shared"
	"storefront/internal/shared/navigation"
	"storefront/internal/shared/notify"
	"storefront/pkg/cache"
	"storefront/pkg/logger"

	addressModel "storefront/internal/domains/address/model"
	addressRepo "storefront/internal/domains/address/repository"
	addressService "storefront/internal/domains/address/service"
	cartRepo "storefront/internal/domains/cart/repository"
	cartService "storefront/internal/domains/cart/service"
	checkoutRepo "storefront/internal/domains/checkout/repository"
	checkoutService "storefront/internal/domains/checkout/service"
	"storefront/internal/domains/payment/gateway"
	"storefront/internal/domains/payment/gateway/mock"
	paymentRepo "storefront/internal/domains/payment/repository"
	paymentService "storefront/internal/domains/payment/service"
	userService "storefront/internal/domains/user/service"
)

const msgSessionExpired = "Your session has expired, please sign in again"

// ========================================
// CONTAINER STRUCT
// ========================================

// Container holds the app-scoped dependencies of one storefront client.
// Page-scoped state (a checkout screen, a verification screen) is built on
// demand with NewCheckoutPage and NewVerifier.
type Container struct {
	// ========================================
	// INFRASTRUCTURE LAYER
	// ========================================

	Config    *config.Config
	Cache     cache.Cache
	API       *api.Client
	Navigator navigation.Navigator
	Scheduler navigation.Scheduler
	Notifier  notify.Notifier
	Confirmer gateway.Confirmer

	redis *infraCache.RedisCache

	// ========================================
	// REPOSITORY LAYER
	// ========================================

	CartRepo     cartRepo.RepositoryInterface
	AddressRepo  addressRepo.RepositoryInterface
	CheckoutRepo checkoutRepo.RepositoryInterface
	PaymentRepo  paymentRepo.RepositoryInterface

	// ========================================
	// SERVICE LAYER
	// ========================================

	Session *userService.Session
	Auth    *userService.Authenticator
	Cart    *cartService.Store
}

// Options replaces parts of the graph, mostly for tests and the CLI.
type Options struct {
	HTTPClient *http.Client
	Cache      cache.Cache
	Navigator  navigation.Navigator // default: navigation.History
	Scheduler  navigation.Scheduler // default: navigation.RealScheduler
	Notifier   notify.Notifier      // default: notify.LogNotifier
	Confirmer  gateway.Confirmer    // default: mock.MockConfirmer
}

// ========================================
// CONSTRUCTOR: BUILD CONTAINER
// ========================================

// NewContainer builds the dependency graph in this order:
// 1. Storage (memory or Redis)
// 2. Session and API client
// 3. Repositories
// 4. Services
func NewContainer(cfg *config.Config, opts Options) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger.Info("initializing container", map[string]interface{}{
		"environment": cfg.App.Environment,
		"api":         cfg.API.BaseURL,
		"storage":     cfg.Storage.Driver,
	})

	c := &Container{
		Config:    cfg,
		Navigator: opts.Navigator,
		Scheduler: opts.Scheduler,
		Notifier:  opts.Notifier,
		Confirmer: opts.Confirmer,
	}
	if c.Navigator == nil {
		c.Navigator = &navigation.History{}
	}
	if c.Scheduler == nil {
		c.Scheduler = navigation.RealScheduler{}
	}
	if c.Notifier == nil {
		c.Notifier = notify.LogNotifier{}
	}
	if c.Confirmer == nil {
		c.Confirmer = mock.NewMockConfirmer()
	}

	// ========================================
	// STEP 1: INITIALIZE STORAGE
	// ========================================
	if err := c.initStorage(opts.Cache); err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	// ========================================
	// STEP 2: SESSION + API CLIENT
	// ========================================
	c.Session = userService.NewSession(c.Cache, cfg.Storage.SessionTTL)

	client, err := api.NewClient(api.Options{
		BaseURL:          cfg.API.BaseURL,
		Timeout:          cfg.API.Timeout,
		GuestHeader:      cfg.API.GuestHeader,
		RefreshPath:      cfg.API.RefreshPath,
		HTTPClient:       opts.HTTPClient,
		OnSessionExpired: c.sessionExpired,
	}, c.Session)
	if err != nil {
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}
	c.API = client

	// ========================================
	// STEP 3: INITIALIZE REPOSITORIES
	// ========================================
	c.initRepositories()

	// ========================================
	// STEP 4: INITIALIZE SERVICES
	// ========================================
	c.initServices()

	logger.Info("container initialized", nil)
	return c, nil
}

// ========================================
// PRIVATE INITIALIZATION METHODS
// ========================================

func (c *Container) initStorage(override cache.Cache) error {
	if override != nil {
		c.Cache = override
		return nil
	}

	switch c.Config.Storage.Driver {
	case config.StorageRedis:
		client := infraCache.NewRedisClient(c.Config.Redis.Host, c.Config.Redis.Password, c.Config.Redis.DB)
		rc := infraCache.NewRedisCache(client, c.Config.Storage.KeyPrefix)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rc.Connect(ctx); err != nil {
			// the store still works once Redis comes back
			logger.Warn("redis connection failed (non-critical)", map[string]interface{}{
				"host":  c.Config.Redis.Host,
				"error": err.Error(),
			})
		}
		c.redis = rc
		c.Cache = rc
	case config.StorageMemory:
		c.Cache = infraCache.NewMemoryCache()
	default:
		return fmt.Errorf("unknown storage driver %q", c.Config.Storage.Driver)
	}
	return nil
}

func (c *Container) initRepositories() {
	c.CartRepo = cartRepo.NewHTTPRepository(c.API)
	c.AddressRepo = addressRepo.NewHTTPRepository(c.API)
	c.CheckoutRepo = checkoutRepo.NewHTTPRepository(c.API)
	c.PaymentRepo = paymentRepo.NewHTTPRepository(c.API)
}

func (c *Container) initServices() {
	c.Auth = userService.NewAuthenticator(c.API, c.Session)

	// ----------------------------------------
	// CART STORE
	// ----------------------------------------
	// snapshots are keyed per shopper so signing in never shows the guest cart
	snapshots := cartRepo.NewSnapshotStore(c.Cache, c.Session.CartKey, c.Config.Storage.CartTTL)
	c.Cart = cartService.NewStore(c.CartRepo, snapshots, c.Notifier)
}

func (c *Container) sessionExpired() {
	c.Notifier.Notify(notify.LevelWarning, msgSessionExpired)
	c.Navigator.Navigate(shared.RouteSignIn, nil)
}

// ========================================
// PAGE SCOPED STATE
// ========================================

// CheckoutPage is the state behind one visit to the checkout screen.
type CheckoutPage struct {
	Addresses *addressService.Selector
	Checkout  *checkoutService.Orchestrator
}

// Close stops the page's timers and drops late results
func (p *CheckoutPage) Close() {
	p.Checkout.Detach()
}

// NewCheckoutPage wires a fresh address selector into a fresh orchestrator.
func (c *Container) NewCheckoutPage() *CheckoutPage {
	orch := checkoutService.NewOrchestrator(checkoutService.Dependencies{
		Orders:    c.CheckoutRepo,
		Addresses: c.AddressRepo,
		Payments:  c.PaymentRepo,
		Confirmer: c.Confirmer,
		Cart:      c.Cart,
		Navigator: c.Navigator,
		Scheduler: c.Scheduler,
		Notifier:  c.Notifier,
	}, checkoutService.Options{
		CODRedirectDelay: c.Config.Checkout.CODRedirectDelay,
	})

	selector := addressService.NewSelector(c.AddressRepo, c.Notifier)
	selector.Subscribe(func(p addressModel.PendingAddress) {
		if err := orch.SetPendingAddress(p); err != nil {
			logger.DebugFields("address change ignored", map[string]interface{}{
				"pending": p.String(),
				"error":   err.Error(),
			})
		}
	})

	return &CheckoutPage{Addresses: selector, Checkout: orch}
}

// NewVerifier builds the state behind one visit to the verification screen.
func (c *Container) NewVerifier() *paymentService.Verifier {
	return paymentService.NewVerifier(c.PaymentRepo, c.Navigator, c.Scheduler, c.Notifier, paymentService.VerifierOptions{
		AutoRedirect:  c.Config.Payment.AutoRedirect,
		RedirectDelay: c.Config.Payment.SuccessRedirectDelay,
	})
}

// ========================================
// CLEANUP
// ========================================

// Cleanup releases resources. Call on shutdown.
func (c *Container) Cleanup() {
	logger.Info("cleaning up container", nil)

	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			logger.Error("failed to close redis", err)
		}
	}
}
