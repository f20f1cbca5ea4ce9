package model

// Category описывает раздел меню.
type Category struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	SortOrder int    `json:"sortOrder"`
	Icon      string `json:"icon,omitempty"`
}

// MenuItem описывает позицию каталога с актуальной ценой.
type MenuItem struct {
	ID              int64  `json:"id"`
	CategoryID      int64  `json:"categoryId"`
	CategorySlug    string `json:"categorySlug"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	PriceKopecks    int64  `json:"priceKopecks"`
	ImageURL        string `json:"imageUrl,omitempty"`
	Available       bool   `json:"available"`
	IsBusinessLunch bool   `json:"isBusinessLunch"`
}

// Menu содержит меню на день.
type Menu struct {
	Categories   []Category `json:"categories"`
	Items        []MenuItem `json:"items"`
	DailyItemIDs []int64    `json:"dailyItemIds"`
}

// StatsPeriod задаёт окно статистики.
type StatsPeriod string

const (
	PeriodDay   StatsPeriod = "day"
	PeriodWeek  StatsPeriod = "week"
	PeriodMonth StatsPeriod = "month"
)

// Days возвращает длину периода в днях. Неизвестный период считается неделей.
func (p StatsPeriod) Days() int {
	switch p {
	case PeriodDay:
		return 1
	case PeriodMonth:
		return 30
	}
	return 7
}

// Stats содержит сводную статистику для администратора.
type Stats struct {
	Period         StatsPeriod   `json:"period"`
	Revenue        RevenueStats  `json:"revenue"`
	OrdersByStatus []StatusCount `json:"ordersByStatus"`
	TopDishes      []DishStats   `json:"topDishes"`
	PaymentMethods []MethodCount `json:"paymentMethods"`
}

// RevenueStats содержит выручку за период.
type RevenueStats struct {
	Total      int64 `json:"total"`
	OrderCount int   `json:"orderCount"`
	AvgCheck   int64 `json:"avgCheck"`
}

// StatusCount содержит число заказов в статусе.
type StatusCount struct {
	Status OrderStatus `json:"status"`
	Count  int         `json:"count"`
}

// DishStats содержит продажи одного блюда.
type DishStats struct {
	ItemName      string `json:"itemName"`
	TotalQuantity int    `json:"totalQuantity"`
	TotalRevenue  int64  `json:"totalRevenue"`
}

// MethodCount содержит число заказов по способу оплаты.
type MethodCount struct {
	Method PaymentMethod `json:"method"`
	Count  int           `json:"count"`
}
