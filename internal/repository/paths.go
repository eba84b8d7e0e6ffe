package repository

import "github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/docstore"

const (
	usersRoot = "users"

	// AdminNamespace holds orders created from the admin console rather
	// than by a customer checkout.
	AdminNamespace = "_admin"
)

func userPath(uid string) string {
	return docstore.Join(usersRoot, uid)
}

func cartPath(uid string) string {
	return docstore.Join(usersRoot, uid, "cart")
}

func ordersPath(uid string) string {
	return docstore.Join(usersRoot, uid, "orders")
}

func orderPath(uid, key string) string {
	return docstore.Join(usersRoot, uid, "orders", key)
}

func shipmentPath(uid, key string) string {
	return docstore.Join(usersRoot, uid, "orders", key, "shipment")
}

func lastOrderPath(uid string) string {
	return docstore.Join(usersRoot, uid, "lastOrder")
}

func pendingPaymentPath(uid string) string {
	return docstore.Join(usersRoot, uid, "pendingPayment")
}

// OrderPath exposes the storage location of an order for logs and audits.
func OrderPath(uid, key string) string {
	return orderPath(uid, key)
}
