package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}
		events, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}
		tickets, err := app.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("transactions")
		collection.Fields.Add(
			&core.RelationField{Name: "ticket", Required: true, MaxSelect: 1, CollectionId: tickets.Id, CascadeDelete: true},
			&core.RelationField{Name: "event", Required: true, MaxSelect: 1, CollectionId: events.Id, CascadeDelete: true},
			&core.RelationField{Name: "user", Required: true, MaxSelect: 1, CollectionId: users.Id, CascadeDelete: true},
			&core.NumberField{Name: "amount", Min: types.Pointer(0.0)},
			&core.TextField{Name: "payment_reference", Required: true},
			&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{"completed", "refunded"}},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_transactions_reference", false, "payment_reference", "")
		collection.AddIndex("idx_transactions_user", false, "user", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("transactions")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
