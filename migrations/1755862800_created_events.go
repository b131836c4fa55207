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

		collection := core.NewBaseCollection("events")
		collection.Fields.Add(
			&core.TextField{Name: "name", Required: true},
			&core.TextField{Name: "description"},
			&core.TextField{Name: "venue"},
			&core.DateField{Name: "starts_at", Required: true},
			&core.DateField{Name: "ends_at", Required: true},
			&core.NumberField{Name: "total_tickets", Required: true, OnlyInt: true, Min: types.Pointer(1.0)},
			&core.NumberField{Name: "tickets_remaining", OnlyInt: true, Min: types.Pointer(0.0)},
			&core.NumberField{Name: "ticket_price", Min: types.Pointer(0.0)},
			&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{"active", "cancelled"}},
			&core.RelationField{Name: "organizer", Required: true, MaxSelect: 1, CollectionId: users.Id, CascadeDelete: true},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_events_status", false, "status", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
