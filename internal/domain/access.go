package domain

// Role определяет уровень доступа пользователя в платформе.
type Role string

const (
	// RolePlatformAdmin — администратор платформы, видит все компании.
	RolePlatformAdmin Role = "platform_admin"
	// RoleCompanyAdmin — администратор одной компании-дистрибьютора.
	RoleCompanyAdmin Role = "company_admin"
	// RoleCompanyStaff — сотрудник компании (сборка/доставка).
	RoleCompanyStaff Role = "company_staff"
)

// Principal — неизменяемый контекст авторизованного запроса.
// Передаётся явно в обработчики и сервисы; глобального состояния сессии нет.
type Principal struct {
	UserID    string
	CompanyID string
	Role      Role
}

// CanAccessCompany проверяет право принципала работать с ресурсами компании.
func (p Principal) CanAccessCompany(companyID string) bool {
	if p.Role == RolePlatformAdmin {
		return true
	}
	return p.CompanyID != "" && p.CompanyID == companyID
}
