// Package api exposes the pantry over HTTP.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pantry/internal/apperror"
	"pantry/internal/cookbook"
	"pantry/internal/evaluation"
	"pantry/internal/models"
	"pantry/internal/storage"
)

const dateLayout = "2006-01-02"

// FailureRecorder counts rejected operations
type FailureRecorder interface {
	RecordFailure(operation string, err error)
}

// Options configures a PantryAPI. Zero values disable the optional parts.
type Options struct {
	Logger   *zap.Logger
	Secret   string // enables jwt on mutating routes
	Events   *Hub
	Failures FailureRecorder
	Now      func() time.Time
}

// PantryAPI represents the main API handler for the pantry
type PantryAPI struct {
	Router *gin.Engine
	Ledger *storage.Ledger
	Book   *cookbook.RecipeBook
	Events *Hub

	failures FailureRecorder
	secret   []byte
	now      func() time.Time
	logger   *zap.Logger
}

// NewPantryAPI creates a new pantry API instance
func NewPantryAPI(ledger *storage.Ledger, book *cookbook.RecipeBook, opts Options) *PantryAPI {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	router := gin.New()
	router.Use(RequestID(logger), Logger(), ErrorHandler(), Recovery())

	api := &PantryAPI{
		Router:   router,
		Ledger:   ledger,
		Book:     book,
		Events:   opts.Events,
		failures: opts.Failures,
		secret:   []byte(opts.Secret),
		now:      now,
		logger:   logger,
	}

	api.setupRoutes()
	return api
}

// setupRoutes configures all API endpoints
func (p *PantryAPI) setupRoutes() {
	p.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "pantry API is running"})
	})

	v1 := p.Router.Group("/api/v1")
	write := v1.Group("")
	if len(p.secret) > 0 {
		write.Use(AuthMiddleware(p.secret))
	}

	{
		// Groceries
		write.POST("/groceries", p.RegisterGrocery)
		v1.GET("/groceries", p.ListGroceries)
		v1.GET("/groceries/:name", p.GetGrocery)
		write.POST("/groceries/:name/withdraw", p.Withdraw)
		v1.GET("/expiring", p.ExpiringBefore)
		v1.GET("/value", p.TotalValue)

		// Expired stock
		v1.GET("/expired", p.ListExpired)
		v1.GET("/expired/value", p.TotalExpiredValue)
		v1.GET("/expired/:name", p.GetExpired)
		write.POST("/expired/purge", p.PurgeExpired)

		// Recipes
		write.POST("/recipes", p.AddRecipe)
		v1.GET("/recipes", p.ListRecipes)
		v1.GET("/recipes/:name", p.GetRecipe)
		v1.GET("/cookable", p.Cookable)

		v1.GET("/units", p.Units)
	}

	if p.Events != nil {
		v1.GET("/events", p.Events.ServeWS)
	}
}

// fail records err against operation and hands it to the error middleware.
func (p *PantryAPI) fail(c *gin.Context, operation string, err error) {
	if p.failures != nil {
		p.failures.RecordFailure(operation, err)
	}
	_ = c.Error(err)
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperror.InvalidArgument("invalid request body").WithCause(err)
	}
	return nil
}

func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, apperror.InvalidArgument("%s is required", field)
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, apperror.InvalidArgument("%s must be a YYYY-MM-DD date", field).
			WithDetail(field, value)
	}
	return t, nil
}

// Grocery handlers

type groceryRequest struct {
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
	Unit   string          `json:"unit"`
	Expiry string          `json:"expiry"`
}

type withdrawRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Unit   string          `json:"unit"`
}

// RegisterGrocery adds a batch. A batch that has already expired is moved to
// the expired shelves straight away.
func (p *PantryAPI) RegisterGrocery(c *gin.Context) {
	var req groceryRequest
	if err := bindJSON(c, &req); err != nil {
		p.fail(c, "register", err)
		return
	}
	expiry, err := parseDate("expiry", req.Expiry)
	if err != nil {
		p.fail(c, "register", err)
		return
	}

	item, err := models.NewInventoryItem(req.Name, req.Price, req.Amount, req.Unit, expiry)
	if err != nil {
		p.fail(c, "register", err)
		return
	}
	if err := p.Ledger.Register(item); err != nil {
		p.fail(c, "register", err)
		return
	}

	expired := item.IsExpiredAt(p.now())
	if expired {
		p.Ledger.ClassifyExpired()
		p.logger.Warn("registered grocery is already expired",
			zap.String("name", item.Name()),
			zap.String("expiry", item.ExpiryDate().Format(dateLayout)),
		)
	}

	c.JSON(http.StatusCreated, gin.H{"batch": newBatchView(*item), "expired": expired})
}

func (p *PantryAPI) ListGroceries(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"shelves": newShelfViews(p.Ledger.Shelves())})
}

func (p *PantryAPI) GetGrocery(c *gin.Context) {
	name := c.Param("name")
	batches := p.Ledger.Find(name)
	if len(batches) == 0 {
		p.fail(c, "find", apperror.UnknownItem(name))
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "batches": newBatchViews(batches)})
}

func (p *PantryAPI) Withdraw(c *gin.Context) {
	var req withdrawRequest
	if err := bindJSON(c, &req); err != nil {
		p.fail(c, "withdraw", err)
		return
	}

	name := c.Param("name")
	w, err := p.Ledger.Withdraw(name, req.Amount, req.Unit)
	if err != nil {
		p.fail(c, "withdraw", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"withdrawal": newWithdrawalView(w),
		"remaining":  newBatchViews(p.Ledger.Find(name)),
	})
}

func (p *PantryAPI) ExpiringBefore(c *gin.Context) {
	before, err := parseDate("before", c.Query("before"))
	if err != nil {
		p.fail(c, "expiring", err)
		return
	}
	items, err := p.Ledger.ExpiringBefore(before)
	if err != nil {
		p.fail(c, "expiring", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"before": before.Format(dateLayout), "batches": newBatchViews(items)})
}

func (p *PantryAPI) TotalValue(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"total": p.Ledger.TotalValue()})
}

// Expired stock handlers

// ListExpired classifies expired stock before listing it.
func (p *PantryAPI) ListExpired(c *gin.Context) {
	moved := p.Ledger.ClassifyExpired()
	c.JSON(http.StatusOK, gin.H{
		"moved":   len(moved),
		"shelves": newShelfViews(p.Ledger.ExpiredShelves()),
	})
}

func (p *PantryAPI) GetExpired(c *gin.Context) {
	name := c.Param("name")
	c.JSON(http.StatusOK, gin.H{"name": name, "batches": newBatchViews(p.Ledger.FindExpired(name))})
}

func (p *PantryAPI) PurgeExpired(c *gin.Context) {
	purged := p.Ledger.PurgeExpired()
	c.JSON(http.StatusOK, gin.H{"purged": len(purged), "batches": newBatchViews(purged)})
}

func (p *PantryAPI) TotalExpiredValue(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"total": p.Ledger.TotalExpiredValue()})
}

// Recipe handlers

type recipeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Process     string `json:"process"`
	Ingredients []struct {
		Name   string          `json:"name"`
		Amount decimal.Decimal `json:"amount"`
		Unit   string          `json:"unit"`
	} `json:"ingredients"`
}

func (p *PantryAPI) AddRecipe(c *gin.Context) {
	var req recipeRequest
	if err := bindJSON(c, &req); err != nil {
		p.fail(c, "add_recipe", err)
		return
	}

	ings := make([]models.IngredientRequirement, 0, len(req.Ingredients))
	for _, ing := range req.Ingredients {
		ings = append(ings, models.IngredientRequirement{
			Name:     ing.Name,
			Quantity: ing.Amount,
			Unit:     models.Unit(ing.Unit),
		})
	}

	recipe, err := models.NewRecipe(req.Name, req.Description, req.Process, ings...)
	if err != nil {
		p.fail(c, "add_recipe", err)
		return
	}
	if err := p.Book.Add(recipe); err != nil {
		p.fail(c, "add_recipe", err)
		return
	}

	c.JSON(http.StatusCreated, newRecipeView(recipe))
}

func (p *PantryAPI) ListRecipes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"recipes": newRecipeViews(p.Book.Recipes())})
}

// GetRecipe returns the recipe together with what the current stock lacks for it.
func (p *PantryAPI) GetRecipe(c *gin.Context) {
	name := c.Param("name")
	recipe, ok := p.Book.Get(name)
	if !ok {
		p.fail(c, "get_recipe", apperror.New(apperror.KindUnknownItem, "recipe %q not found", name).
			WithDetail("name", name))
		return
	}

	assessment, err := evaluation.Assess(recipe, p.Ledger)
	if err != nil {
		p.fail(c, "get_recipe", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe": newRecipeView(recipe), "assessment": assessment})
}

func (p *PantryAPI) Cookable(c *gin.Context) {
	recipes, err := p.Book.AvailableRecipes(p.Ledger)
	if err != nil {
		p.fail(c, "cookable", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": newRecipeViews(recipes)})
}

func (p *PantryAPI) Units(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"units": models.SupportedUnits()})
}
