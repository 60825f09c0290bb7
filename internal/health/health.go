package health

import (
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	autoscalingv2 "k8s.io/api/autoscaling/v2"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"

	"steward/internal/resource"
)

// Status is the health of a single resource or of a whole application.
type Status string

const (
	// StatusHealthy means the resource has reached its desired state.
	StatusHealthy Status = "Healthy"

	// StatusProgressing means the resource is converging and expected to
	// become healthy without intervention.
	StatusProgressing Status = "Progressing"

	// StatusDegraded means the resource reports a terminal or stuck
	// condition.
	StatusDegraded Status = "Degraded"

	// StatusMissing means a desired resource does not exist in the cluster.
	StatusMissing Status = "Missing"
)

// severity orders statuses for aggregation. Higher is worse.
var severity = map[Status]int{
	StatusHealthy:     0,
	StatusProgressing: 1,
	StatusDegraded:    2,
	StatusMissing:     3,
}

// Worse returns the more severe of the two statuses.
func Worse(a, b Status) Status {
	if severity[b] > severity[a] {
		return b
	}
	return a
}

// ResourceHealth is the assessed health of one live resource.
type ResourceHealth struct {
	Key     resource.Key `json:"key"`
	Status  Status       `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Check assesses the health of a single live resource. Kinds without a
// dedicated rule are considered healthy once they exist; existence is all
// that can be said about them.
func Check(obj *unstructured.Unstructured) ResourceHealth {
	health := ResourceHealth{
		Key:    resource.KeyFor(obj),
		Status: StatusHealthy,
	}

	check, ok := checks[obj.GroupVersionKind().GroupKind().String()]
	if !ok {
		return health
	}

	status, message, err := check(obj)
	if err != nil {
		health.Status = StatusDegraded
		health.Message = fmt.Sprintf("reading status: %v", err)
		return health
	}

	health.Status = status
	health.Message = message
	return health
}

type checkFunc func(obj *unstructured.Unstructured) (Status, string, error)

var checks = map[string]checkFunc{
	"Deployment.apps":                         checkDeployment,
	"StatefulSet.apps":                        checkStatefulSet,
	"DaemonSet.apps":                          checkDaemonSet,
	"ReplicaSet.apps":                         checkReplicaSet,
	"Pod":                                     checkPod,
	"Job.batch":                               checkJob,
	"PersistentVolumeClaim":                   checkPVC,
	"Service":                                 checkService,
	"Ingress.networking.k8s.io":               checkIngress,
	"HorizontalPodAutoscaler.autoscaling":     checkHPA,
}

func convert(obj *unstructured.Unstructured, into interface{}) error {
	return runtime.DefaultUnstructuredConverter.FromUnstructured(obj.Object, into)
}

func checkDeployment(obj *unstructured.Unstructured) (Status, string, error) {
	var deployment appsv1.Deployment
	if err := convert(obj, &deployment); err != nil {
		return StatusDegraded, "", err
	}

	for _, condition := range deployment.Status.Conditions {
		if condition.Type == appsv1.DeploymentProgressing && condition.Reason == "ProgressDeadlineExceeded" {
			return StatusDegraded, "progress deadline exceeded", nil
		}
		if condition.Type == appsv1.DeploymentReplicaFailure && condition.Status == corev1.ConditionTrue {
			return StatusDegraded, condition.Message, nil
		}
	}

	if deployment.Status.ObservedGeneration < deployment.Generation {
		return StatusProgressing, "waiting for rollout to be observed", nil
	}

	desired := int32(1)
	if deployment.Spec.Replicas != nil {
		desired = *deployment.Spec.Replicas
	}
	if deployment.Status.UpdatedReplicas < desired {
		return StatusProgressing, fmt.Sprintf("%d of %d replicas updated", deployment.Status.UpdatedReplicas, desired), nil
	}
	if deployment.Status.AvailableReplicas < desired {
		return StatusProgressing, fmt.Sprintf("%d of %d replicas available", deployment.Status.AvailableReplicas, desired), nil
	}
	return StatusHealthy, "", nil
}

func checkStatefulSet(obj *unstructured.Unstructured) (Status, string, error) {
	var sts appsv1.StatefulSet
	if err := convert(obj, &sts); err != nil {
		return StatusDegraded, "", err
	}

	if sts.Status.ObservedGeneration < sts.Generation {
		return StatusProgressing, "waiting for rollout to be observed", nil
	}

	desired := int32(1)
	if sts.Spec.Replicas != nil {
		desired = *sts.Spec.Replicas
	}
	if sts.Status.ReadyReplicas < desired {
		return StatusProgressing, fmt.Sprintf("%d of %d replicas ready", sts.Status.ReadyReplicas, desired), nil
	}
	if sts.Status.UpdateRevision != "" && sts.Status.CurrentRevision != sts.Status.UpdateRevision {
		return StatusProgressing, "rolling update in progress", nil
	}
	return StatusHealthy, "", nil
}

func checkDaemonSet(obj *unstructured.Unstructured) (Status, string, error) {
	var ds appsv1.DaemonSet
	if err := convert(obj, &ds); err != nil {
		return StatusDegraded, "", err
	}

	if ds.Status.ObservedGeneration < ds.Generation {
		return StatusProgressing, "waiting for rollout to be observed", nil
	}
	if ds.Status.NumberReady < ds.Status.DesiredNumberScheduled {
		return StatusProgressing, fmt.Sprintf("%d of %d pods ready", ds.Status.NumberReady, ds.Status.DesiredNumberScheduled), nil
	}
	if ds.Status.UpdatedNumberScheduled < ds.Status.DesiredNumberScheduled {
		return StatusProgressing, "rolling update in progress", nil
	}
	return StatusHealthy, "", nil
}

func checkReplicaSet(obj *unstructured.Unstructured) (Status, string, error) {
	var rs appsv1.ReplicaSet
	if err := convert(obj, &rs); err != nil {
		return StatusDegraded, "", err
	}

	for _, condition := range rs.Status.Conditions {
		if condition.Type == appsv1.ReplicaSetReplicaFailure && condition.Status == corev1.ConditionTrue {
			return StatusDegraded, condition.Message, nil
		}
	}

	desired := int32(1)
	if rs.Spec.Replicas != nil {
		desired = *rs.Spec.Replicas
	}
	if rs.Status.AvailableReplicas < desired {
		return StatusProgressing, fmt.Sprintf("%d of %d replicas available", rs.Status.AvailableReplicas, desired), nil
	}
	return StatusHealthy, "", nil
}

func checkPod(obj *unstructured.Unstructured) (Status, string, error) {
	var pod corev1.Pod
	if err := convert(obj, &pod); err != nil {
		return StatusDegraded, "", err
	}

	switch pod.Status.Phase {
	case corev1.PodSucceeded:
		return StatusHealthy, "", nil
	case corev1.PodFailed:
		return StatusDegraded, pod.Status.Message, nil
	case corev1.PodRunning:
		for _, condition := range pod.Status.Conditions {
			if condition.Type == corev1.PodReady && condition.Status == corev1.ConditionTrue {
				return StatusHealthy, "", nil
			}
		}
		return StatusProgressing, "pod running but not ready", nil
	default:
		return StatusProgressing, fmt.Sprintf("pod phase %s", pod.Status.Phase), nil
	}
}

func checkJob(obj *unstructured.Unstructured) (Status, string, error) {
	var job batchv1.Job
	if err := convert(obj, &job); err != nil {
		return StatusDegraded, "", err
	}

	for _, condition := range job.Status.Conditions {
		if condition.Status != corev1.ConditionTrue {
			continue
		}
		switch condition.Type {
		case batchv1.JobComplete:
			return StatusHealthy, "", nil
		case batchv1.JobFailed:
			return StatusDegraded, condition.Message, nil
		}
	}
	return StatusProgressing, "job running", nil
}

func checkPVC(obj *unstructured.Unstructured) (Status, string, error) {
	var pvc corev1.PersistentVolumeClaim
	if err := convert(obj, &pvc); err != nil {
		return StatusDegraded, "", err
	}

	switch pvc.Status.Phase {
	case corev1.ClaimBound:
		return StatusHealthy, "", nil
	case corev1.ClaimLost:
		return StatusDegraded, "claim lost its volume", nil
	default:
		return StatusProgressing, "claim pending", nil
	}
}

func checkService(obj *unstructured.Unstructured) (Status, string, error) {
	var svc corev1.Service
	if err := convert(obj, &svc); err != nil {
		return StatusDegraded, "", err
	}

	if svc.Spec.Type == corev1.ServiceTypeLoadBalancer && len(svc.Status.LoadBalancer.Ingress) == 0 {
		return StatusProgressing, "waiting for load balancer", nil
	}
	return StatusHealthy, "", nil
}

func checkIngress(obj *unstructured.Unstructured) (Status, string, error) {
	var ing networkingv1.Ingress
	if err := convert(obj, &ing); err != nil {
		return StatusDegraded, "", err
	}

	if len(ing.Status.LoadBalancer.Ingress) == 0 {
		return StatusProgressing, "waiting for load balancer", nil
	}
	return StatusHealthy, "", nil
}

func checkHPA(obj *unstructured.Unstructured) (Status, string, error) {
	var hpa autoscalingv2.HorizontalPodAutoscaler
	if err := convert(obj, &hpa); err != nil {
		return StatusDegraded, "", err
	}

	for _, condition := range hpa.Status.Conditions {
		if condition.Type == autoscalingv2.ScalingActive && condition.Status == corev1.ConditionFalse && condition.Reason == "FailedGetScale" {
			return StatusDegraded, condition.Message, nil
		}
		if condition.Type == autoscalingv2.AbleToScale && condition.Status == corev1.ConditionFalse {
			return StatusDegraded, condition.Message, nil
		}
	}
	return StatusHealthy, "", nil
}
