package health

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"

	"steward/internal/resource"
	"steward/pkg/logging"
)

func TestMain(m *testing.M) {
	logging.InitDefault()
	os.Exit(m.Run())
}

func fromYAML(t *testing.T, doc string) *unstructured.Unstructured {
	t.Helper()
	obj := &unstructured.Unstructured{}
	require.NoError(t, yaml.Unmarshal([]byte(doc), &obj.Object))
	return obj
}

func TestWorse(t *testing.T) {
	assert.Equal(t, StatusMissing, Worse(StatusHealthy, StatusMissing))
	assert.Equal(t, StatusMissing, Worse(StatusMissing, StatusDegraded))
	assert.Equal(t, StatusDegraded, Worse(StatusProgressing, StatusDegraded))
	assert.Equal(t, StatusProgressing, Worse(StatusHealthy, StatusProgressing))
	assert.Equal(t, StatusHealthy, Worse(StatusHealthy, StatusHealthy))
}

func TestCheck_UnknownKindIsHealthy(t *testing.T) {
	obj := fromYAML(t, `
apiVersion: example.com/v1
kind: Widget
metadata:
  name: w
`)
	assert.Equal(t, StatusHealthy, Check(obj).Status)
}

func TestCheck_Deployment(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want Status
	}{
		{
			name: "all replicas available",
			doc: `
apiVersion: apps/v1
kind: Deployment
metadata:
  name: web
  generation: 2
spec:
  replicas: 3
status:
  observedGeneration: 2
  updatedReplicas: 3
  availableReplicas: 3
`,
			want: StatusHealthy,
		},
		{
			name: "rollout in progress",
			doc: `
apiVersion: apps/v1
kind: Deployment
metadata:
  name: web
  generation: 2
spec:
  replicas: 3
status:
  observedGeneration: 2
  updatedReplicas: 1
  availableReplicas: 1
`,
			want: StatusProgressing,
		},
		{
			name: "generation not observed yet",
			doc: `
apiVersion: apps/v1
kind: Deployment
metadata:
  name: web
  generation: 5
spec:
  replicas: 1
status:
  observedGeneration: 4
  updatedReplicas: 1
  availableReplicas: 1
`,
			want: StatusProgressing,
		},
		{
			name: "progress deadline exceeded",
			doc: `
apiVersion: apps/v1
kind: Deployment
metadata:
  name: web
  generation: 2
spec:
  replicas: 3
status:
  observedGeneration: 2
  conditions:
  - type: Progressing
    status: "False"
    reason: ProgressDeadlineExceeded
`,
			want: StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rh := Check(fromYAML(t, tt.doc))
			assert.Equal(t, tt.want, rh.Status)
		})
	}
}

func TestCheck_StatefulSet(t *testing.T) {
	ready := fromYAML(t, `
apiVersion: apps/v1
kind: StatefulSet
metadata:
  name: db
  generation: 1
spec:
  replicas: 2
status:
  observedGeneration: 1
  readyReplicas: 2
  currentRevision: db-abc
  updateRevision: db-abc
`)
	assert.Equal(t, StatusHealthy, Check(ready).Status)

	rolling := fromYAML(t, `
apiVersion: apps/v1
kind: StatefulSet
metadata:
  name: db
  generation: 2
spec:
  replicas: 2
status:
  observedGeneration: 2
  readyReplicas: 2
  currentRevision: db-abc
  updateRevision: db-def
`)
	assert.Equal(t, StatusProgressing, Check(rolling).Status)
}

func TestCheck_Job(t *testing.T) {
	complete := fromYAML(t, `
apiVersion: batch/v1
kind: Job
metadata:
  name: migrate
status:
  conditions:
  - type: Complete
    status: "True"
`)
	assert.Equal(t, StatusHealthy, Check(complete).Status)

	failed := fromYAML(t, `
apiVersion: batch/v1
kind: Job
metadata:
  name: migrate
status:
  conditions:
  - type: Failed
    status: "True"
    message: backoff limit exceeded
`)
	rh := Check(failed)
	assert.Equal(t, StatusDegraded, rh.Status)
	assert.Contains(t, rh.Message, "backoff limit")

	running := fromYAML(t, `
apiVersion: batch/v1
kind: Job
metadata:
  name: migrate
status:
  active: 1
`)
	assert.Equal(t, StatusProgressing, Check(running).Status)
}

func TestCheck_Pod(t *testing.T) {
	succeeded := fromYAML(t, `
apiVersion: v1
kind: Pod
metadata:
  name: task
status:
  phase: Succeeded
`)
	assert.Equal(t, StatusHealthy, Check(succeeded).Status)

	notReady := fromYAML(t, `
apiVersion: v1
kind: Pod
metadata:
  name: web
status:
  phase: Running
  conditions:
  - type: Ready
    status: "False"
`)
	assert.Equal(t, StatusProgressing, Check(notReady).Status)

	failed := fromYAML(t, `
apiVersion: v1
kind: Pod
metadata:
  name: web
status:
  phase: Failed
`)
	assert.Equal(t, StatusDegraded, Check(failed).Status)
}

func TestCheck_PVCAndService(t *testing.T) {
	bound := fromYAML(t, `
apiVersion: v1
kind: PersistentVolumeClaim
metadata:
  name: data
status:
  phase: Bound
`)
	assert.Equal(t, StatusHealthy, Check(bound).Status)

	pending := fromYAML(t, `
apiVersion: v1
kind: PersistentVolumeClaim
metadata:
  name: data
status:
  phase: Pending
`)
	assert.Equal(t, StatusProgressing, Check(pending).Status)

	lb := fromYAML(t, `
apiVersion: v1
kind: Service
metadata:
  name: web
spec:
  type: LoadBalancer
status:
  loadBalancer: {}
`)
	assert.Equal(t, StatusProgressing, Check(lb).Status)

	clusterIP := fromYAML(t, `
apiVersion: v1
kind: Service
metadata:
  name: web
spec:
  type: ClusterIP
`)
	assert.Equal(t, StatusHealthy, Check(clusterIP).Status)
}

func TestAggregate(t *testing.T) {
	desired := []*unstructured.Unstructured{
		fromYAML(t, `
apiVersion: v1
kind: ConfigMap
metadata:
  name: settings
  namespace: prod
`),
		fromYAML(t, `
apiVersion: apps/v1
kind: Deployment
metadata:
  name: web
  namespace: prod
spec:
  replicas: 1
`),
	}

	liveDeployment := fromYAML(t, `
apiVersion: apps/v1
kind: Deployment
metadata:
  name: web
  namespace: prod
  generation: 1
spec:
  replicas: 1
status:
  observedGeneration: 1
  updatedReplicas: 1
  availableReplicas: 0
`)

	live := map[resource.Key]*unstructured.Unstructured{
		resource.KeyFor(desired[0]):      desired[0],
		resource.KeyFor(liveDeployment): liveDeployment,
	}

	app := Aggregate(desired, live)
	assert.Equal(t, StatusProgressing, app.Status)
	assert.Len(t, app.Resources, 2)

	// A missing desired resource dominates everything else.
	delete(live, resource.KeyFor(desired[0]))
	app = Aggregate(desired, live)
	assert.Equal(t, StatusMissing, app.Status)
}

func TestAggregate_EmptyDesiredIsHealthy(t *testing.T) {
	app := Aggregate(nil, nil)
	assert.Equal(t, StatusHealthy, app.Status)
	assert.Empty(t, app.Resources)
}
