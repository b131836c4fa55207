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

		collection := core.NewBaseCollection("tickets")
		collection.Fields.Add(
			&core.TextField{Name: "ticket_number", Required: true},
			&core.RelationField{Name: "event", Required: true, MaxSelect: 1, CollectionId: events.Id, CascadeDelete: true},
			&core.RelationField{Name: "user", Required: true, MaxSelect: 1, CollectionId: users.Id, CascadeDelete: true},
			&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{"reserved", "paid", "used", "cancelled"}},
			&core.NumberField{Name: "price", Min: types.Pointer(0.0)},
			&core.DateField{Name: "reservation_expiry"},
			&core.BoolField{Name: "checked"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_tickets_ticket_number", true, "ticket_number", "")
		collection.AddIndex("idx_tickets_user", false, "user", "")
		// the sweeper scans on these two columns together
		collection.AddIndex("idx_tickets_status_expiry", false, "status, reservation_expiry", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
