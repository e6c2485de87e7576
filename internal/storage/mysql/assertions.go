package mysql

import "github.com/tinoosan/bankbook/internal/service/bank"

// Compile-time interface assertion documenting what Store satisfies.
var _ bank.Store = (*Store)(nil)
