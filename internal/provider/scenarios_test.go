package provider_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
	"github.com/imamik/cloudbroker/internal/provider"
	cbtest "github.com/imamik/cloudbroker/internal/testing"
)

var _ = Describe("Scoped session", func() {
	var (
		fx      *cbtest.CloudFixture
		session *provider.ScopedSession
	)

	BeforeEach(func() {
		fx = cbtest.NewCloudFixture()
		p := provider.New(fx.Cloud, provider.WithLogger(logger))

		By("authenticating with username and password")
		unscoped, err := p.Authenticate(ctx, fx.Username, fx.Password)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(unscoped.Close)

		By("resuming the session from its token")
		resumed, err := p.FromToken(ctx, unscoped.Token())
		Expect(err).NotTo(HaveOccurred())
		Expect(resumed.Username()).To(Equal(fx.Username))
		DeferCleanup(resumed.Close)

		tenancies, err := resumed.Tenancies(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(tenancies).To(HaveLen(1))

		session, err = resumed.ScopedSession(ctx, cloud.ByValue(tenancies[0]))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(session.Close)
	})

	Context("provisioning a machine", func() {
		It("creates, exposes and removes a machine", func() {
			By("creating the machine, which creates the internal network")
			machine, err := session.CreateMachine(ctx, provider.MachineCreateRequest{
				Name:   "analysis",
				Image:  cloud.ByID[cloud.Image](fx.Image.ID),
				Size:   cloud.ByID[cloud.Size](fx.Small.ID),
				SSHKey: cbtest.SSHPublicKey(GinkgoT()),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(machine.Status.Type).To(Equal(cloud.MachineStatusBuild))
			Expect(machine.InternalIP).NotTo(BeEmpty())

			By("allocating and attaching an external IP")
			ip, err := session.AllocateExternalIP(ctx)
			Expect(err).NotTo(HaveOccurred())
			ip, err = session.AttachExternalIP(ctx, cloud.ByValue(ip), cloud.ByValue(machine))
			Expect(err).NotTo(HaveOccurred())
			Expect(ip.AttachedMachineID).To(Equal(machine.ID))

			machine, err = session.FindMachine(ctx, machine.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(machine.ExternalIP).To(Equal(ip.Address))

			By("attaching a volume")
			volume, err := session.CreateVolume(ctx, "scratch", 20)
			Expect(err).NotTo(HaveOccurred())
			volume, err = session.AttachVolume(ctx, cloud.ByValue(volume), cloud.ByValue(machine))
			Expect(err).NotTo(HaveOccurred())
			Expect(volume.Status).To(Equal(cloud.VolumeStatusInUse))

			By("deleting the machine")
			deleted, err := session.DeleteMachine(ctx, cloud.ByValue(machine))
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeNil())

			By("observing the released resources")
			ips, err := session.ExternalIPs(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ips).To(ConsistOf(cloud.ExternalIP{ID: ip.ID, Address: ip.Address}))

			volume, err = session.FindVolume(ctx, volume.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(volume.Status).To(Equal(cloud.VolumeStatusAvailable))
		})

		It("reports the power state after stop and start", func() {
			machine, err := session.CreateMachine(ctx, provider.MachineCreateRequest{
				Name:  "batch",
				Image: cloud.ByID[cloud.Image](fx.Image.ID),
				Size:  cloud.ByID[cloud.Size](fx.Small.ID),
			})
			Expect(err).NotTo(HaveOccurred())

			stopped, err := session.StopMachine(ctx, cloud.ByValue(machine))
			Expect(err).NotTo(HaveOccurred())
			Expect(stopped.Status.Type).To(Equal(cloud.MachineStatusShutoff))
			Expect(stopped.PowerState).To(Equal(cloud.PowerStateShutDown))

			started, err := session.StartMachine(ctx, cloud.ByValue(machine))
			Expect(err).NotTo(HaveOccurred())
			Expect(started.Status.Type).To(Equal(cloud.MachineStatusActive))
			Expect(started.PowerState).To(Equal(cloud.PowerStateRunning))
		})

		It("surfaces vendor failures as domain errors", func() {
			fx.Cloud.FailOn("compute.CreateServer", cloudapi.NewError(403, "Quota exceeded for instances: Requested 1, but already used 10 of 10 instances"))

			_, err := session.CreateMachine(ctx, provider.MachineCreateRequest{
				Name:  "analysis",
				Image: cloud.ByID[cloud.Image](fx.Image.ID),
				Size:  cloud.ByID[cloud.Size](fx.Small.ID),
			})
			Expect(err).To(MatchError(cloud.ErrQuotaExceeded))
			Expect(cloud.KindOf(err)).To(Equal(cloud.KindQuotaExceeded))
		})
	})

	Context("running a Kubernetes cluster", func() {
		It("creates a cluster and issues credentials once the API is reachable", func() {
			cluster, err := session.CreateKubernetesCluster(ctx, provider.KubernetesClusterCreateRequest{
				Name:        "platform",
				Template:    cloud.ByID[cloud.KubernetesClusterTemplate](fx.MonitoredTemplate.UUID),
				MasterSize:  cloud.ByID[cloud.Size](fx.Small.ID),
				WorkerSize:  cloud.ByID[cloud.Size](fx.Large.ID),
				WorkerCount: 2,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(cluster.GrafanaAdminPassword).To(HaveLen(32))

			_, err = session.GenerateKubeconfig(ctx, cloud.ByValue(cluster))
			Expect(err).To(MatchError(cloud.ErrInvalidOperation))

			ready := cluster
			ready.APIAddress = "https://203.0.113.10:6443"
			kubeconfig, err := session.GenerateKubeconfig(ctx, cloud.ByValue(ready))
			Expect(err).NotTo(HaveOccurred())
			Expect(kubeconfig).To(ContainSubstring("server: https://203.0.113.10:6443"))
			Expect(strings.Count(kubeconfig, "client-key-data")).To(Equal(1))

			deleted, err := session.DeleteKubernetesCluster(ctx, cloud.ByValue(cluster))
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).NotTo(BeNil())
			Expect(deleted.Status).To(Equal(cloud.ClusterDeleteInProgress))

			fx.Cloud.FinishClusterDeletions()
			clusters, err := session.KubernetesClusters(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(clusters).To(BeEmpty())
		})
	})

	Context("reporting quotas", func() {
		It("counts allocated external IPs", func() {
			_, err := session.AllocateExternalIP(ctx)
			Expect(err).NotTo(HaveOccurred())

			quotas, err := session.Quotas(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(quotas).To(ContainElement(cloud.Quota{Resource: "external_ips", Allocated: 50, Used: 1}))
		})
	})
})
