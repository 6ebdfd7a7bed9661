package database

// 五类简历条目统一暴露 RowID/Bind，供同步逻辑按数组位置重排并绑定归属。
// PortfolioID 一经创建不允许换绑，Bind 只在保存路径上由服务端调用。

func (w *WorkExperience) RowID() uint { return w.ID }

func (w *WorkExperience) Bind(portfolioID uint, displayOrder int) {
	w.PortfolioID = portfolioID
	w.DisplayOrder = displayOrder
}

func (e *Education) RowID() uint { return e.ID }

func (e *Education) Bind(portfolioID uint, displayOrder int) {
	e.PortfolioID = portfolioID
	e.DisplayOrder = displayOrder
}

func (a *Award) RowID() uint { return a.ID }

func (a *Award) Bind(portfolioID uint, displayOrder int) {
	a.PortfolioID = portfolioID
	a.DisplayOrder = displayOrder
}

func (c *Certification) RowID() uint { return c.ID }

func (c *Certification) Bind(portfolioID uint, displayOrder int) {
	c.PortfolioID = portfolioID
	c.DisplayOrder = displayOrder
}

func (l *LanguageCertification) RowID() uint { return l.ID }

func (l *LanguageCertification) Bind(portfolioID uint, displayOrder int) {
	l.PortfolioID = portfolioID
	l.DisplayOrder = displayOrder
}
