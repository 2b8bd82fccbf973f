package scope

import "gorm.io/gorm"

// Column returns a scope filtering on column = value. Empty values are ignored
// so optional query filters can be chained unconditionally.
func Column(column, value string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if value == "" {
			return db
		}
		return db.Where(column+" = ?", value)
	}
}

func Employee(employeeID string) func(db *gorm.DB) *gorm.DB {
	return Column("employee_id", employeeID)
}

func Paginate(page, pageSize int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page < 1 || pageSize < 1 {
			return db
		}
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}
