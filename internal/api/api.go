// Package api wraps the platform endpoints in typed calls.
package api

import (
	"github.com/hongminglow/therapy-console/internal/models"
	"github.com/hongminglow/therapy-console/internal/request"
)

// Client groups every endpoint family behind one value.
type Client struct {
	r *request.Client

	Devices      *DeviceAPI
	DictTypes    Resource[models.DictType, int64]
	DictData     Resource[models.DictData, int64]
	Reports      Resource[models.Report, string]
	VisitRecords Resource[models.VisitRecord, int64]
	Patients     Resource[models.Patient, int64]
	Videos       Resource[models.Video, string]
	Files        *FileAPI
}

// Resource base paths.
const (
	PathDictType    = "/api/sysDictType"
	PathDictData    = "/api/sysDictData"
	PathReport      = "/api/videoReport"
	PathVisitRecord = "/api/videoTreat"
	PathPatient     = "/api/patient"
	PathVideo       = "/api/video"
	PathDevice      = "/admin/device"
	PathSysConfig   = "/api/sysConfig"
)

func New(r *request.Client) *Client {
	return &Client{
		r:            r,
		Devices:      &DeviceAPI{r: r},
		DictTypes:    NewResource[models.DictType, int64](r, PathDictType),
		DictData:     NewResource[models.DictData, int64](r, PathDictData),
		Reports:      NewResource[models.Report, string](r, PathReport),
		VisitRecords: NewResource[models.VisitRecord, int64](r, PathVisitRecord),
		Patients:     NewResource[models.Patient, int64](r, PathPatient),
		Videos:       NewResource[models.Video, string](r, PathVideo),
		Files:        &FileAPI{r: r},
	}
}
