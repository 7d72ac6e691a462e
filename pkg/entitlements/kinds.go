// Package entitlements cross-checks an app's sandbox-entitlement declaration
// against its usage-description map, producing the validated permission list
// that goes into a FairSeal and the catalog.
package entitlements

// Kind is a named capability grant. The string form is the entitlement key
// without the "com.apple.security." prefix.
type Kind string

// EntitlementKeyPrefix namespaces sandbox entitlement keys.
const EntitlementKeyPrefix = "com.apple.security."

// The known entitlement kinds, in canonical order. Validation output always
// follows this order, never declaration order, so catalog output is
// deterministic across runs.
const (
	KindAppSandbox          Kind = "app-sandbox"
	KindNetworkClient       Kind = "network.client"
	KindNetworkServer       Kind = "network.server"
	KindDeviceCamera        Kind = "device.camera"
	KindDeviceMicrophone    Kind = "device.microphone"
	KindDeviceAudioInput    Kind = "device.audio-input"
	KindDeviceUSB           Kind = "device.usb"
	KindDeviceBluetooth     Kind = "device.bluetooth"
	KindDeviceSerial        Kind = "device.serial"
	KindPrint               Kind = "print"
	KindAddressBook         Kind = "personal-information.addressbook"
	KindLocation            Kind = "personal-information.location"
	KindCalendars           Kind = "personal-information.calendars"
	KindFilesUserSelectedRO Kind = "files.user-selected.read-only"
	KindFilesUserSelectedRW Kind = "files.user-selected.read-write"
	KindFilesDownloadsRO    Kind = "files.downloads.read-only"
	KindFilesDownloadsRW    Kind = "files.downloads.read-write"
	KindPicturesRO          Kind = "assets.pictures.read-only"
	KindPicturesRW          Kind = "assets.pictures.read-write"
	KindMusicRO             Kind = "assets.music.read-only"
	KindMusicRW             Kind = "assets.music.read-write"
	KindMoviesRO            Kind = "assets.movies.read-only"
	KindMoviesRW            Kind = "assets.movies.read-write"
	KindAllowJIT            Kind = "cs.allow-jit"
	KindAppGroups           Kind = "application-groups"
)

// canonicalOrder fixes the output ordering of validated permissions.
var canonicalOrder = []Kind{
	KindAppSandbox,
	KindNetworkClient,
	KindNetworkServer,
	KindDeviceCamera,
	KindDeviceMicrophone,
	KindDeviceAudioInput,
	KindDeviceUSB,
	KindDeviceBluetooth,
	KindDeviceSerial,
	KindPrint,
	KindAddressBook,
	KindLocation,
	KindCalendars,
	KindFilesUserSelectedRO,
	KindFilesUserSelectedRW,
	KindFilesDownloadsRO,
	KindFilesDownloadsRW,
	KindPicturesRO,
	KindPicturesRW,
	KindMusicRO,
	KindMusicRW,
	KindMoviesRO,
	KindMoviesRW,
	KindAllowJIT,
	KindAppGroups,
}

// usageKeys maps each permitted Kind to its candidate usage-description
// keys, checked in order. An empty list means the grant needs no
// justification. A Kind absent from this table is categorically forbidden:
// entitlements like blanket filesystem access or unsigned executable memory
// have no acceptable justification in a vetted catalog.
var usageKeys = map[Kind][]string{
	KindAppSandbox:          {},
	KindNetworkClient:       {string(KindNetworkClient)},
	KindNetworkServer:       {string(KindNetworkServer)},
	KindDeviceCamera:        {string(KindDeviceCamera), "NSCameraUsageDescription"},
	KindDeviceMicrophone:    {string(KindDeviceMicrophone), "NSMicrophoneUsageDescription"},
	KindDeviceAudioInput:    {string(KindDeviceAudioInput), "NSMicrophoneUsageDescription"},
	KindDeviceUSB:           {string(KindDeviceUSB)},
	KindDeviceBluetooth:     {string(KindDeviceBluetooth), "NSBluetoothAlwaysUsageDescription"},
	KindDeviceSerial:        {string(KindDeviceSerial)},
	KindPrint:               {},
	KindAddressBook:         {string(KindAddressBook), "NSContactsUsageDescription"},
	KindLocation:            {string(KindLocation), "NSLocationUsageDescription"},
	KindCalendars:           {string(KindCalendars), "NSCalendarsUsageDescription"},
	KindFilesUserSelectedRO: {},
	KindFilesUserSelectedRW: {},
	KindFilesDownloadsRO:    {string(KindFilesDownloadsRO)},
	KindFilesDownloadsRW:    {string(KindFilesDownloadsRW)},
	KindPicturesRO:          {string(KindPicturesRO), "NSPhotoLibraryUsageDescription"},
	KindPicturesRW:          {string(KindPicturesRW), "NSPhotoLibraryUsageDescription"},
	KindMusicRO:             {string(KindMusicRO), "NSAppleMusicUsageDescription"},
	KindMusicRW:             {string(KindMusicRW), "NSAppleMusicUsageDescription"},
	KindMoviesRO:            {string(KindMoviesRO)},
	KindMoviesRW:            {string(KindMoviesRW)},
	KindAllowJIT:            {string(KindAllowJIT)},
	KindAppGroups:           {string(KindAppGroups)},
}

// EntitlementKey returns the full entitlement key for the kind.
func (k Kind) EntitlementKey() string {
	return EntitlementKeyPrefix + string(k)
}

// KindForKey maps a full entitlement key back to its Kind. The second result
// is false for keys outside the sandbox namespace.
func KindForKey(key string) (Kind, bool) {
	if len(key) <= len(EntitlementKeyPrefix) || key[:len(EntitlementKeyPrefix)] != EntitlementKeyPrefix {
		return "", false
	}
	return Kind(key[len(EntitlementKeyPrefix):]), true
}
