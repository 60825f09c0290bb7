package health

import (
	"sort"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"steward/internal/resource"
)

// ApplicationHealth is the aggregated health of an application: the worst
// status across its desired resources, plus the per-resource breakdown.
type ApplicationHealth struct {
	Status    Status           `json:"status"`
	Resources []ResourceHealth `json:"resources"`
}

// Aggregate assesses every desired resource against the live snapshot and
// folds the results into one application status. Desired resources absent
// from the snapshot are Missing. An application with no desired resources is
// healthy by definition.
//
// Live resources that are not desired (orphans) do not participate: their
// fate is the diff engine's business, not the health model's.
func Aggregate(desired []*unstructured.Unstructured, live map[resource.Key]*unstructured.Unstructured) ApplicationHealth {
	app := ApplicationHealth{
		Status:    StatusHealthy,
		Resources: make([]ResourceHealth, 0, len(desired)),
	}

	for _, obj := range desired {
		key := resource.KeyFor(obj)

		liveObj, exists := live[key]
		if !exists {
			app.Resources = append(app.Resources, ResourceHealth{
				Key:     key,
				Status:  StatusMissing,
				Message: "not found in cluster",
			})
			app.Status = Worse(app.Status, StatusMissing)
			continue
		}

		rh := Check(liveObj)
		app.Resources = append(app.Resources, rh)
		app.Status = Worse(app.Status, rh.Status)
	}

	sort.Slice(app.Resources, func(i, j int) bool {
		return app.Resources[i].Key.String() < app.Resources[j].Key.String()
	})
	return app
}
