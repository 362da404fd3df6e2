// Package rbac maps user roles to the actions they may perform. The
// mapping is a fixed lookup table evaluated before any workflow runs.
package rbac

// Role is a user role.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
	RoleViewer  Role = "viewer"
)

// Action is a permission checked at the HTTP boundary.
type Action string

const (
	ActionClientView   Action = "client.view"
	ActionClientManage Action = "client.manage"

	ActionQuoteView    Action = "quote.view"
	ActionQuoteCreate  Action = "quote.create"
	ActionQuoteEdit    Action = "quote.edit"
	ActionQuoteSend    Action = "quote.send"
	ActionQuoteApprove Action = "quote.approve"
	ActionQuoteReject  Action = "quote.reject"

	ActionInvoiceView    Action = "invoice.view"
	ActionInvoiceConvert Action = "invoice.convert"
	ActionInvoicePayment Action = "invoice.payment"

	ActionAuditView  Action = "audit.view"
	ActionUserManage Action = "user.manage"
)

var capabilities = map[Role]map[Action]struct{}{
	RoleAdmin: grant(
		ActionClientView, ActionClientManage,
		ActionQuoteView, ActionQuoteCreate, ActionQuoteEdit,
		ActionQuoteSend, ActionQuoteApprove, ActionQuoteReject,
		ActionInvoiceView, ActionInvoiceConvert, ActionInvoicePayment,
		ActionAuditView, ActionUserManage,
	),
	RoleManager: grant(
		ActionClientView, ActionClientManage,
		ActionQuoteView, ActionQuoteCreate, ActionQuoteEdit,
		ActionQuoteSend, ActionQuoteApprove, ActionQuoteReject,
		ActionInvoiceView, ActionInvoiceConvert, ActionInvoicePayment,
		ActionAuditView,
	),
	RoleUser: grant(
		ActionClientView, ActionClientManage,
		ActionQuoteView, ActionQuoteCreate, ActionQuoteEdit, ActionQuoteSend,
		ActionInvoiceView,
	),
	RoleViewer: grant(
		ActionClientView, ActionQuoteView, ActionInvoiceView,
	),
}

func grant(actions ...Action) map[Action]struct{} {
	set := make(map[Action]struct{}, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return set
}

// Allowed reports whether the role may perform the action.
func Allowed(role Role, action Action) bool {
	set, ok := capabilities[role]
	if !ok {
		return false
	}
	_, ok = set[action]
	return ok
}

// Known reports whether the role exists in the capability table.
func Known(role Role) bool {
	_, ok := capabilities[role]
	return ok
}
