package domain

var Tables = []interface{}{
	// System
	&SysConfig{},
	&SysUser{},
	&SysUserLog{},
	// Catalog
	&Category{},
	&Product{},
	// Sales
	&Sale{},
	&SaleItem{},
	&ReceiptSequence{},
}
