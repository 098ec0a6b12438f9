// internal/services/analytics_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/javajoker/affigraph/internal/models"
)

// AnalyticsService is the read-only side: dashboard summaries, trend series
// and performance rankings over the attribution graph. Cancelled orders are
// excluded from every aggregate.
type AnalyticsService struct {
	db *gorm.DB
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: db}
}

type DateRange struct {
	From time.Time
	To   time.Time
}

type PerformanceStats struct {
	Orders     int64   `json:"orders"`
	Revenue    float64 `json:"revenue"`
	Commission float64 `json:"commission"`
}

type ProductBreakdown struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Orders      int64  `json:"orders"`
}

type AffiliatePerformance struct {
	AffiliateID    string                `json:"affiliate_id"`
	AffiliateName  string                `json:"affiliate_name"`
	AffiliateEmail string                `json:"affiliate_email"`
	AffiliateLevel models.AffiliateLevel `json:"affiliate_level"`
	Direct         PerformanceStats      `json:"direct"`
	Influenced     PerformanceStats      `json:"influenced"`
	Total          PerformanceStats      `json:"total"`
	TopProducts    []ProductBreakdown    `json:"top_products"`
}

const topBreakdownLimit = 5

// AffiliatePerformance returns direct/influenced/total stats per affiliate,
// with a top-5 product breakdown each, ordered by total commission.
func (s *AnalyticsService) AffiliatePerformance(ctx context.Context, affiliateID *string, rng *DateRange) ([]AffiliatePerformance, error) {
	var affiliates []models.Person
	q := s.db.WithContext(ctx).Where("role = ?", models.PersonRoleAffiliate)
	if affiliateID != nil {
		q = q.Where("id = ?", *affiliateID)
	}
	if err := q.Find(&affiliates).Error; err != nil {
		return nil, fmt.Errorf("failed to list affiliates: %w", err)
	}
	if affiliateID != nil && len(affiliates) == 0 {
		return nil, ErrAffiliateNotFound
	}

	direct, err := s.edgeStats(ctx, "referrals", affiliateID, rng)
	if err != nil {
		return nil, err
	}
	influenced, err := s.edgeStats(ctx, "influences", affiliateID, rng)
	if err != nil {
		return nil, err
	}
	topProducts, err := s.topProductsByAffiliate(ctx, affiliateID, rng)
	if err != nil {
		return nil, err
	}

	results := make([]AffiliatePerformance, 0, len(affiliates))
	for _, a := range affiliates {
		perf := AffiliatePerformance{
			AffiliateID:    a.ID,
			AffiliateName:  a.Name,
			AffiliateEmail: a.Email,
			AffiliateLevel: a.Level,
			Direct:         direct[a.ID],
			Influenced:     influenced[a.ID],
			TopProducts:    topProducts[a.ID],
		}
		perf.Total = PerformanceStats{
			Orders:     perf.Direct.Orders + perf.Influenced.Orders,
			Revenue:    perf.Direct.Revenue + perf.Influenced.Revenue,
			Commission: perf.Direct.Commission + perf.Influenced.Commission,
		}
		if perf.TopProducts == nil {
			perf.TopProducts = []ProductBreakdown{}
		}
		results = append(results, perf)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Total.Commission > results[j].Total.Commission
	})
	return results, nil
}

// edgeStats aggregates one attribution edge table (referrals or influences)
// per person over non-cancelled orders.
func (s *AnalyticsService) edgeStats(ctx context.Context, edgeTable string, affiliateID *string, rng *DateRange) (map[string]PerformanceStats, error) {
	var rows []struct {
		PersonID   string
		Orders     int64
		Revenue    float64
		Commission float64
	}

	q := s.db.WithContext(ctx).Table(edgeTable+" e").
		Select("e.person_id AS person_id, COUNT(DISTINCT o.id) AS orders, COALESCE(SUM(o.total), 0) AS revenue, COALESCE(SUM(e.commission), 0) AS commission").
		Joins("JOIN orders o ON o.id = e.order_id").
		Where("o.status <> ?", models.OrderStatusCancelled)
	if affiliateID != nil {
		q = q.Where("e.person_id = ?", *affiliateID)
	}
	if rng != nil {
		q = q.Where("o.processed_at >= ? AND o.processed_at <= ?", rng.From, rng.To)
	}
	if err := q.Group("e.person_id").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate %s: %w", edgeTable, err)
	}

	stats := make(map[string]PerformanceStats, len(rows))
	for _, r := range rows {
		stats[r.PersonID] = PerformanceStats{Orders: r.Orders, Revenue: r.Revenue, Commission: r.Commission}
	}
	return stats, nil
}

func (s *AnalyticsService) topProductsByAffiliate(ctx context.Context, affiliateID *string, rng *DateRange) (map[string][]ProductBreakdown, error) {
	var rows []struct {
		PersonID    string
		ProductID   string
		ProductName string
		Orders      int64
	}

	q := s.db.WithContext(ctx).Table("referrals r").
		Select("r.person_id AS person_id, p.id AS product_id, p.name AS product_name, COUNT(DISTINCT o.id) AS orders").
		Joins("JOIN orders o ON o.id = r.order_id").
		Joins("JOIN order_lines l ON l.order_id = o.id").
		Joins("JOIN product_variants v ON v.id = l.variant_id").
		Joins("JOIN products p ON p.id = v.product_id").
		Where("o.status <> ?", models.OrderStatusCancelled)
	if affiliateID != nil {
		q = q.Where("r.person_id = ?", *affiliateID)
	}
	if rng != nil {
		q = q.Where("o.processed_at >= ? AND o.processed_at <= ?", rng.From, rng.To)
	}
	if err := q.Group("r.person_id, p.id, p.name").
		Order("orders DESC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate top products: %w", err)
	}

	top := make(map[string][]ProductBreakdown)
	for _, r := range rows {
		if len(top[r.PersonID]) >= topBreakdownLimit {
			continue
		}
		top[r.PersonID] = append(top[r.PersonID], ProductBreakdown{
			ProductID:   r.ProductID,
			ProductName: r.ProductName,
			Orders:      r.Orders,
		})
	}
	return top, nil
}

type AffiliateBreakdown struct {
	AffiliateID   string  `json:"affiliate_id"`
	AffiliateName string  `json:"affiliate_name"`
	Orders        int64   `json:"orders"`
	Revenue       float64 `json:"revenue"`
}

type ProductPerformance struct {
	ProductID     string               `json:"product_id"`
	ProductName   string               `json:"product_name"`
	ProductType   string               `json:"product_type"`
	TotalOrders   int64                `json:"total_orders"`
	TotalRevenue  float64              `json:"total_revenue"`
	TopAffiliates []AffiliateBreakdown `json:"top_affiliates"`
}

// ProductPerformance reports per-product totals with the top contributing
// affiliates. Soft-deleted products are excluded from the listing even
// though their historical edges remain.
func (s *AnalyticsService) ProductPerformance(ctx context.Context, productID *string, rng *DateRange) ([]ProductPerformance, error) {
	var products []models.Product
	q := s.db.WithContext(ctx).Where("deleted = ?", false)
	if productID != nil {
		q = q.Where("id = ?", *productID)
	}
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if productID != nil && len(products) == 0 {
		return nil, ErrProductNotFound
	}

	var totals []struct {
		ProductID string
		Orders    int64
		Revenue   float64
	}
	tq := s.db.WithContext(ctx).Table("order_lines l").
		Select("v.product_id AS product_id, COUNT(DISTINCT o.id) AS orders, COALESCE(SUM(o.total), 0) AS revenue").
		Joins("JOIN product_variants v ON v.id = l.variant_id").
		Joins("JOIN orders o ON o.id = l.order_id").
		Where("o.status <> ?", models.OrderStatusCancelled)
	if productID != nil {
		tq = tq.Where("v.product_id = ?", *productID)
	}
	if rng != nil {
		tq = tq.Where("o.processed_at >= ? AND o.processed_at <= ?", rng.From, rng.To)
	}
	if err := tq.Group("v.product_id").Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate product totals: %w", err)
	}
	totalsByProduct := make(map[string]struct {
		Orders  int64
		Revenue float64
	}, len(totals))
	for _, t := range totals {
		totalsByProduct[t.ProductID] = struct {
			Orders  int64
			Revenue float64
		}{t.Orders, t.Revenue}
	}

	var affRows []struct {
		ProductID     string
		AffiliateID   string
		AffiliateName string
		Orders        int64
		Revenue       float64
	}
	aq := s.db.WithContext(ctx).Table("referrals r").
		Select("v.product_id AS product_id, a.id AS affiliate_id, a.name AS affiliate_name, COUNT(DISTINCT o.id) AS orders, COALESCE(SUM(o.total), 0) AS revenue").
		Joins("JOIN people a ON a.id = r.person_id").
		Joins("JOIN orders o ON o.id = r.order_id").
		Joins("JOIN order_lines l ON l.order_id = o.id").
		Joins("JOIN product_variants v ON v.id = l.variant_id").
		Where("o.status <> ?", models.OrderStatusCancelled)
	if productID != nil {
		aq = aq.Where("v.product_id = ?", *productID)
	}
	if rng != nil {
		aq = aq.Where("o.processed_at >= ? AND o.processed_at <= ?", rng.From, rng.To)
	}
	if err := aq.Group("v.product_id, a.id, a.name").
		Order("orders DESC").
		Scan(&affRows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate top affiliates: %w", err)
	}
	topAffiliates := make(map[string][]AffiliateBreakdown)
	for _, r := range affRows {
		if len(topAffiliates[r.ProductID]) >= topBreakdownLimit {
			continue
		}
		topAffiliates[r.ProductID] = append(topAffiliates[r.ProductID], AffiliateBreakdown{
			AffiliateID:   r.AffiliateID,
			AffiliateName: r.AffiliateName,
			Orders:        r.Orders,
			Revenue:       r.Revenue,
		})
	}

	results := make([]ProductPerformance, 0, len(products))
	for _, p := range products {
		perf := ProductPerformance{
			ProductID:     p.ID,
			ProductName:   p.Name,
			ProductType:   p.Type,
			TotalOrders:   totalsByProduct[p.ID].Orders,
			TotalRevenue:  totalsByProduct[p.ID].Revenue,
			TopAffiliates: topAffiliates[p.ID],
		}
		if perf.TopAffiliates == nil {
			perf.TopAffiliates = []AffiliateBreakdown{}
		}
		results = append(results, perf)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalRevenue > results[j].TotalRevenue
	})
	return results, nil
}

type TrendPoint struct {
	Period                     time.Time `json:"period"`
	Orders                     int64     `json:"orders"`
	Revenue                    float64   `json:"revenue"`
	AffiliateOrders            int64     `json:"affiliate_orders"`
	AffiliateRevenue           float64   `json:"affiliate_revenue"`
	AffiliateOrderPercentage   float64   `json:"affiliate_order_percentage"`
	AffiliateRevenuePercentage float64   `json:"affiliate_revenue_percentage"`
}

var ErrInvalidGroupBy = errors.New("group_by must be day, week or month")

// Trends buckets non-cancelled orders by day, week or month and reports the
// affiliate-attributed share of each bucket. An empty range yields an empty
// series, never a division error.
func (s *AnalyticsService) Trends(ctx context.Context, rng DateRange, groupBy string) ([]TrendPoint, error) {
	switch groupBy {
	case "day", "week", "month":
	default:
		return nil, ErrInvalidGroupBy
	}

	var points []TrendPoint
	err := s.db.WithContext(ctx).Raw(`
		SELECT date_trunc(?, o.processed_at) AS period,
		       COUNT(*) AS orders,
		       COALESCE(SUM(o.total), 0) AS revenue,
		       COUNT(*) FILTER (WHERE r.order_id IS NOT NULL) AS affiliate_orders,
		       COALESCE(SUM(o.total) FILTER (WHERE r.order_id IS NOT NULL), 0) AS affiliate_revenue
		FROM orders o
		LEFT JOIN (SELECT DISTINCT order_id FROM referrals) r ON r.order_id = o.id
		WHERE o.status <> ?
		  AND o.processed_at >= ?
		  AND o.processed_at <= ?
		GROUP BY 1
		ORDER BY 1`,
		groupBy, models.OrderStatusCancelled, rng.From, rng.To,
	).Scan(&points).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate trends: %w", err)
	}

	for i := range points {
		points[i].AffiliateOrderPercentage = Share(float64(points[i].AffiliateOrders), float64(points[i].Orders))
		points[i].AffiliateRevenuePercentage = Share(points[i].AffiliateRevenue, points[i].Revenue)
	}
	return points, nil
}

// Share returns part/whole, or 0 when the denominator is not positive.
func Share(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole
}

type NetworkNode struct {
	ID    string                `json:"id"`
	Name  string                `json:"name"`
	Level models.AffiliateLevel `json:"level,omitempty"`
	Type  string                `json:"type"`
}

type NetworkLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

type NetworkGraph struct {
	Nodes []NetworkNode `json:"nodes"`
	Links []NetworkLink `json:"links"`
}

// NetworkInfluence returns the two-hop influence subgraph around an
// affiliate: the center, its direct followers, and their followers.
func (s *AnalyticsService) NetworkInfluence(ctx context.Context, affiliateID string) (*NetworkGraph, error) {
	var center models.Person
	if err := s.db.WithContext(ctx).First(&center, "id = ?", affiliateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAffiliateNotFound
		}
		return nil, fmt.Errorf("failed to load affiliate %s: %w", affiliateID, err)
	}

	graph := &NetworkGraph{
		Nodes: []NetworkNode{{ID: center.ID, Name: center.Name, Level: center.Level, Type: "center"}},
		Links: []NetworkLink{},
	}
	seen := map[string]bool{center.ID: true}

	var firstLevel []models.Person
	if err := s.db.WithContext(ctx).
		Joins("JOIN follows f ON f.follower_id = people.id").
		Where("f.followee_id = ?", center.ID).
		Find(&firstLevel).Error; err != nil {
		return nil, fmt.Errorf("failed to load followers: %w", err)
	}

	firstIDs := make([]string, 0, len(firstLevel))
	for _, p := range firstLevel {
		firstIDs = append(firstIDs, p.ID)
		if !seen[p.ID] {
			seen[p.ID] = true
			graph.Nodes = append(graph.Nodes, NetworkNode{ID: p.ID, Name: p.Name, Level: p.Level, Type: "follower1"})
		}
		graph.Links = append(graph.Links, NetworkLink{Source: p.ID, Target: center.ID, Type: "follows"})
	}

	if len(firstIDs) > 0 {
		var secondLinks []models.Follow
		if err := s.db.WithContext(ctx).
			Preload("Follower").
			Where("followee_id IN ?", firstIDs).
			Find(&secondLinks).Error; err != nil {
			return nil, fmt.Errorf("failed to load second-level followers: %w", err)
		}
		for _, f := range secondLinks {
			if !seen[f.FollowerID] {
				seen[f.FollowerID] = true
				graph.Nodes = append(graph.Nodes, NetworkNode{
					ID:    f.Follower.ID,
					Name:  f.Follower.Name,
					Level: f.Follower.Level,
					Type:  "follower2",
				})
			}
			graph.Links = append(graph.Links, NetworkLink{Source: f.FollowerID, Target: f.FolloweeID, Type: "follows"})
		}
	}

	return graph, nil
}

type DashboardOrders struct {
	Total      int64   `json:"total"`
	Affiliate  int64   `json:"affiliate"`
	Percentage float64 `json:"percentage"`
}

type DashboardRevenue struct {
	Total      float64 `json:"total"`
	Affiliate  float64 `json:"affiliate"`
	Percentage float64 `json:"percentage"`
}

type DashboardAffiliates struct {
	Total      int64   `json:"total"`
	Active     int64   `json:"active"`
	Percentage float64 `json:"percentage"`
}

type DashboardCommission struct {
	Total float64 `json:"total"`
}

type TopAffiliate struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	Level      models.AffiliateLevel `json:"level"`
	Commission float64               `json:"commission"`
}

type DashboardStats struct {
	Orders       DashboardOrders     `json:"orders"`
	Revenue      DashboardRevenue    `json:"revenue"`
	Affiliates   DashboardAffiliates `json:"affiliates"`
	Commission   DashboardCommission `json:"commission"`
	TopAffiliate *TopAffiliate       `json:"top_affiliate"`
}

// DashboardStats combines the headline numbers: order and revenue totals with
// their affiliate-attributed share, affiliate activation, total commission
// and the single top-commission affiliate in range.
func (s *AnalyticsService) DashboardStats(ctx context.Context, rng *DateRange) (*DashboardStats, error) {
	stats := &DashboardStats{}

	var orderTotals struct {
		Orders  int64
		Revenue float64
	}
	oq := s.db.WithContext(ctx).Table("orders o").
		Select("COUNT(*) AS orders, COALESCE(SUM(o.total), 0) AS revenue").
		Where("o.status <> ?", models.OrderStatusCancelled)
	if rng != nil {
		oq = oq.Where("o.processed_at >= ? AND o.processed_at <= ?", rng.From, rng.To)
	}
	if err := oq.Scan(&orderTotals).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate orders: %w", err)
	}

	var affiliateTotals struct {
		Orders     int64
		Revenue    float64
		Commission float64
	}
	aq := s.db.WithContext(ctx).Table("orders o").
		Select("COUNT(DISTINCT o.id) AS orders, COALESCE(SUM(o.total), 0) AS revenue, COALESCE(SUM(r.commission), 0) AS commission").
		Joins("JOIN referrals r ON r.order_id = o.id").
		Where("o.status <> ?", models.OrderStatusCancelled)
	if rng != nil {
		aq = aq.Where("o.processed_at >= ? AND o.processed_at <= ?", rng.From, rng.To)
	}
	if err := aq.Scan(&affiliateTotals).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate affiliate orders: %w", err)
	}

	var totalAffiliates, activeAffiliates int64
	if err := s.db.WithContext(ctx).Model(&models.Person{}).
		Where("role = ?", models.PersonRoleAffiliate).
		Count(&totalAffiliates).Error; err != nil {
		return nil, fmt.Errorf("failed to count affiliates: %w", err)
	}
	if err := s.db.WithContext(ctx).Table("people a").
		Joins("JOIN referrals r ON r.person_id = a.id").
		Where("a.role = ?", models.PersonRoleAffiliate).
		Distinct("a.id").
		Count(&activeAffiliates).Error; err != nil {
		return nil, fmt.Errorf("failed to count active affiliates: %w", err)
	}

	var top []struct {
		ID         string
		Name       string
		Level      models.AffiliateLevel
		Commission float64
	}
	tq := s.db.WithContext(ctx).Table("referrals r").
		Select("a.id AS id, a.name AS name, a.level AS level, COALESCE(SUM(r.commission), 0) AS commission").
		Joins("JOIN people a ON a.id = r.person_id").
		Joins("JOIN orders o ON o.id = r.order_id").
		Where("o.status <> ?", models.OrderStatusCancelled)
	if rng != nil {
		tq = tq.Where("o.processed_at >= ? AND o.processed_at <= ?", rng.From, rng.To)
	}
	if err := tq.Group("a.id, a.name, a.level").
		Order("commission DESC").
		Limit(1).
		Scan(&top).Error; err != nil {
		return nil, fmt.Errorf("failed to find top affiliate: %w", err)
	}

	stats.Orders = DashboardOrders{
		Total:      orderTotals.Orders,
		Affiliate:  affiliateTotals.Orders,
		Percentage: Share(float64(affiliateTotals.Orders), float64(orderTotals.Orders)),
	}
	stats.Revenue = DashboardRevenue{
		Total:      orderTotals.Revenue,
		Affiliate:  affiliateTotals.Revenue,
		Percentage: Share(affiliateTotals.Revenue, orderTotals.Revenue),
	}
	stats.Affiliates = DashboardAffiliates{
		Total:      totalAffiliates,
		Active:     activeAffiliates,
		Percentage: Share(float64(activeAffiliates), float64(totalAffiliates)),
	}
	stats.Commission = DashboardCommission{Total: affiliateTotals.Commission}
	if len(top) > 0 {
		stats.TopAffiliate = &TopAffiliate{
			ID:         top[0].ID,
			Name:       top[0].Name,
			Level:      top[0].Level,
			Commission: top[0].Commission,
		}
	}

	return stats, nil
}
