package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCapabilityTable(t *testing.T) {
	require.True(t, Allowed(RoleAdmin, ActionUserManage))
	require.True(t, Allowed(RoleAdmin, ActionInvoiceConvert))

	require.True(t, Allowed(RoleManager, ActionQuoteApprove))
	require.True(t, Allowed(RoleManager, ActionInvoiceConvert))
	require.False(t, Allowed(RoleManager, ActionUserManage))

	require.True(t, Allowed(RoleUser, ActionQuoteCreate))
	require.True(t, Allowed(RoleUser, ActionQuoteSend))
	require.False(t, Allowed(RoleUser, ActionQuoteApprove))
	require.False(t, Allowed(RoleUser, ActionInvoiceConvert))
	require.False(t, Allowed(RoleUser, ActionInvoicePayment))

	require.True(t, Allowed(RoleViewer, ActionQuoteView))
	require.False(t, Allowed(RoleViewer, ActionQuoteCreate))
	require.False(t, Allowed(RoleViewer, ActionClientManage))
}

func TestUnknownRole(t *testing.T) {
	require.False(t, Known(Role("root")))
	require.False(t, Allowed(Role("root"), ActionQuoteView))
}
