package models

const (
	// DefaultCatalogCacheTTL время жизни кэша автопарка
	DefaultCatalogCacheTTL = 30 * 60 // 30 минут в секундах

	// ExportQueueSize размер очереди воркера экспорта
	ExportQueueSize = 128

	// DefaultMaxBookingDays максимальная длительность аренды
	DefaultMaxBookingDays = 90

	// RateLimitRPS запросов в секунду на клиента по умолчанию
	DefaultRateLimitRPS = 10

	// DefaultRateLimitBurst всплеск запросов по умолчанию
	DefaultRateLimitBurst = 5
)
