package statistics

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/ManuelReschke/OrderFox/app/models"
	"github.com/ManuelReschke/OrderFox/internal/pkg/cache"
	"github.com/ManuelReschke/OrderFox/internal/pkg/database"
)

const (
	CacheKeyOrdersTotal  = "statistics:orders:total"
	CacheKeyOrdersPaid   = "statistics:orders:paid"
	CacheKeyRevenueCents = "statistics:revenue:cents"
	CacheKeyUsersTotal   = "statistics:users:total"
	CacheExpiration      = 30 * time.Minute
)

// StatisticsData holds the aggregated shop numbers exposed over the API.
type StatisticsData struct {
	TotalOrders  int64 `json:"total_orders"`
	PaidOrders   int64 `json:"paid_orders"`
	RevenueCents int64 `json:"revenue_cents"`
	TotalUsers   int64 `json:"total_users"`
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// UpdateCacheIfNeeded refreshes the cached statistics at most once per
// interval, no matter how often it is called.
func UpdateCacheIfNeeded() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	if time.Since(lastCacheUpdate) <= cacheUpdateInterval {
		return
	}

	if err := UpdateStatisticsCache(); err != nil {
		log.Printf("statistics: cache refresh failed: %v", err)
		return
	}
	lastCacheUpdate = time.Now()
}

// UpdateStatisticsCache recomputes all shop statistics and writes them to
// the cache.
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalOrders int64
	if err := db.Model(&models.Order{}).Count(&totalOrders).Error; err != nil {
		return err
	}

	var paidOrders int64
	if err := db.Model(&models.Order{}).Where("paid = ?", true).Count(&paidOrders).Error; err != nil {
		return err
	}

	var revenueCents int64
	if err := db.Model(&models.Order{}).Where("paid = ?", true).
		Select("COALESCE(SUM(amount_cents), 0)").Scan(&revenueCents).Error; err != nil {
		return err
	}

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return err
	}

	for key, value := range map[string]int64{
		CacheKeyOrdersTotal:  totalOrders,
		CacheKeyOrdersPaid:   paidOrders,
		CacheKeyRevenueCents: revenueCents,
		CacheKeyUsersTotal:   totalUsers,
	} {
		if err := cache.Set(key, strconv.FormatInt(value, 10), CacheExpiration); err != nil {
			return err
		}
	}
	return nil
}

// GetStatistics returns the cached shop statistics, refreshing the cache
// first when it is stale.
func GetStatistics() StatisticsData {
	UpdateCacheIfNeeded()

	return StatisticsData{
		TotalOrders:  cachedInt64(CacheKeyOrdersTotal),
		PaidOrders:   cachedInt64(CacheKeyOrdersPaid),
		RevenueCents: cachedInt64(CacheKeyRevenueCents),
		TotalUsers:   cachedInt64(CacheKeyUsersTotal),
	}
}

func cachedInt64(key string) int64 {
	raw, err := cache.Get(key)
	if err != nil || raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
